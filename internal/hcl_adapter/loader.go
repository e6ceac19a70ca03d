package hcl_adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/fsutil"
	"github.com/vk/labelgrid/internal/schema"
)

// ErrNoRegistryFiles is returned when none of the given paths holds a .hcl file.
var ErrNoRegistryFiles = errors.New("no .hcl registry files found")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL registry loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under the given paths and merges their
// project blocks into one model. A project declared twice is an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w in %v", ErrNoRegistryFiles, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.RegistryFile
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, p := range root.Projects {
			project, err := translateProject(p, file)
			if err != nil {
				return nil, nil, err
			}
			if prev, dup := model.Projects[project.Name]; dup {
				return nil, nil, fmt.Errorf("project %q declared twice: in %s and at %s", project.Name, prev.Source, p.DeclRange)
			}
			model.Projects[project.Name] = project
			logger.Debug("Loaded project.", "project", project.Name, "domain", project.Domain, "file", file)
		}
	}

	logger.Debug("HCL loading complete.", "projects", len(model.Projects))
	return model, NewConverter(), nil
}
