package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Output formats of a rendered label config.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	RegistryPath string // .hcl file or directory
	TemplatesDir string // layout root; template paths in the registry are relative to it

	Project    string // project to render
	DataPath   string // JSON data of a single task to render
	DraftPath  string // JSON draft of a single task to convert into annotation results
	DBPath     string // task store
	ImportPath string // JSON task list to import into the store
	OutDir     string // directory for rendered files; stdout when empty
	Format     string
	Check      bool // validate the registry and exit

	LogFormat   string
	LogLevel    string
	ServePort   int
	WorkerCount int
}

// NewConfig validates cfg and fills in defaults. TemplatesDir defaults to the
// registry directory.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RegistryPath == "" {
		return nil, errors.New("RegistryPath is a required configuration field and cannot be empty")
	}

	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = cfg.RegistryPath
		if info, err := os.Stat(cfg.RegistryPath); err == nil && !info.IsDir() {
			cfg.TemplatesDir = filepath.Dir(cfg.RegistryPath)
		}
	}

	switch cfg.Format {
	case "":
		cfg.Format = FormatXML
	case FormatXML, FormatJSON:
	default:
		return nil, fmt.Errorf("invalid format %q: must be '%s' or '%s'", cfg.Format, FormatXML, FormatJSON)
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("invalid worker count %d: must be at least 1", cfg.WorkerCount)
	}
	if cfg.ServePort < 0 || cfg.ServePort > 65535 {
		return nil, fmt.Errorf("invalid serve port %d", cfg.ServePort)
	}
	if cfg.DataPath != "" && cfg.Project == "" {
		return nil, errors.New("a task data file needs a project to render it with")
	}
	if cfg.DraftPath != "" && cfg.Project == "" {
		return nil, errors.New("a draft file needs a project to read its annotations from")
	}
	if cfg.ImportPath != "" && cfg.DBPath == "" {
		return nil, errors.New("importing tasks needs a task database")
	}

	return &cfg, nil
}
