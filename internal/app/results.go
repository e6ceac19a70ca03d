package app

import (
	"context"
	"fmt"

	"github.com/vk/labelgrid/internal/annotation"
	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/expand"
	"github.com/zclconf/go-cty/cty"
)

// DraftResults converts a task's draft data into annotation results, using
// the project's annotation registry. data is the task's input data and may
// be nil; draft fields override it when the layout is rendered to find the
// components produced by repeaters.
//
// Draft values that cannot be converted are logged and left out.
func (a *App) DraftResults(ctx context.Context, project string, data, draft []byte) ([]annotation.Result, error) {
	logger := ctxlog.FromContext(ctx).With("project", project)

	tmpl, err := a.template(project)
	if err != nil {
		return nil, err
	}
	p, _ := a.registry.Project(project)

	draftCtx, err := a.dataContext(draft)
	if err != nil {
		return nil, err
	}
	renderCtx := draftCtx
	if len(data) > 0 {
		taskCtx, err := a.dataContext(data)
		if err != nil {
			return nil, err
		}
		renderCtx = overlay(taskCtx, draftCtx)
	}

	rendered, _ := expand.Render(tmpl, renderCtx)
	results, err := annotation.Build(p, rendered, draftCtx)
	if err != nil {
		logger.Warn("Draft values skipped.", "error", err)
	}
	logger.Debug("Draft converted.", "results", len(results))
	return results, nil
}

func (a *App) dataContext(data []byte) (*binding.Context, error) {
	value, err := a.converter.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	c, err := binding.ContextFromValue(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return c, nil
}

// overlay returns a context holding the variables of base, replaced by those
// of top where both define them.
func overlay(base, top *binding.Context) *binding.Context {
	vars := make(map[string]cty.Value)
	for _, c := range []*binding.Context{base, top} {
		for _, name := range c.Names() {
			v, _ := c.Lookup(name)
			vars[name] = v
		}
	}
	return binding.NewContext(vars)
}
