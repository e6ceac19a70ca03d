package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/labelgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("labelgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
labelgrid - Renders annotation layouts against task data.

Usage:
  labelgrid [options] [REGISTRY_PATH]

Arguments:
  REGISTRY_PATH
    Path to a single .hcl registry file or a directory containing .hcl files.

Examples:
  labelgrid -check registry/
  labelgrid -project ConversationTranslation -data task.json registry/
  labelgrid -project ConversationTranslation -draft draft.json registry/
  labelgrid -db tasks.db -import tasks.json -project OCRTranscription -out rendered/ registry/
  labelgrid -serve-port 8080 registry/

Options:
`)
		flagSet.PrintDefaults()
	}

	registryFlag := flagSet.String("registry", "", "Path to the registry file or directory.")
	rFlag := flagSet.String("r", "", "Path to the registry file or directory (shorthand).")
	templatesFlag := flagSet.String("templates", "", "Directory layout template paths are relative to. Defaults to the registry directory.")
	projectFlag := flagSet.String("project", "", "Project type to render.")
	dataFlag := flagSet.String("data", "", "JSON data file of a single task to render.")
	draftFlag := flagSet.String("draft", "", "JSON draft of a single task to convert into annotation results.")
	dbFlag := flagSet.String("db", "", "Path to the SQLite task database.")
	importFlag := flagSet.String("import", "", "JSON task list to import into the task database.")
	outFlag := flagSet.String("out", "", "Directory for rendered output. Defaults to stdout.")
	formatFlag := flagSet.String("format", "xml", "Output format. Options: 'xml' or 'json'.")
	checkFlag := flagSet.Bool("check", false, "Validate the registry and its layouts, then exit.")
	servePortFlag := flagSet.Int("serve-port", 0, "Port for the HTTP render server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 8, "Number of concurrent workers for rendering stored tasks.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *registryFlag != "" {
		path = *registryFlag
	} else if *rFlag != "" {
		path = *rFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Registry path determined.", "path", path)

	if path == "" {
		slog.Debug("No registry path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		RegistryPath: path,
		TemplatesDir: *templatesFlag,
		Project:      *projectFlag,
		DataPath:     *dataFlag,
		DraftPath:    *draftFlag,
		DBPath:       *dbFlag,
		ImportPath:   *importFlag,
		OutDir:       *outFlag,
		Format:       strings.ToLower(*formatFlag),
		Check:        *checkFlag,
		ServePort:    *servePortFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		WorkerCount:  *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
