package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/layout"
)

// Load registers every project of the model and parses its template from
// templatesDir. Projects sharing a template file share the parsed tree.
//
// Template problems do not fail Load; they are kept and reported by
// ValidateRegistry together with every other inconsistency.
func (r *Registry) Load(ctx context.Context, model *config.Model, templatesDir string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading projects from model...", "projects", len(model.Projects), "templates_dir", templatesDir)

	type parsed struct {
		root *layout.Node
		err  error
	}
	cache := make(map[string]parsed)

	for _, name := range model.ProjectNames() {
		p := model.Projects[name]
		if _, exists := r.projects[name]; exists {
			return fmt.Errorf("project %q already registered", name)
		}
		r.projects[name] = p

		path := filepath.Join(templatesDir, filepath.FromSlash(p.Template))
		res, ok := cache[path]
		if !ok {
			res.root, res.err = parseTemplateFile(path)
			cache[path] = res
		}
		if res.err != nil {
			logger.Debug("Template could not be loaded.", "project", name, "path", path, "error", res.err)
			r.templateErrs[name] = res.err
			continue
		}
		r.templates[name] = res.root
		logger.Debug("Registered project.", "project", name, "template", p.Template)
	}

	logger.Info("Registry loaded.", "projects", len(r.projects), "templates", len(cache))
	return nil
}

func parseTemplateFile(path string) (*layout.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return layout.Parse(filepath.Base(path), src)
}
