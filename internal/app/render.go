package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/expand"
	"github.com/vk/labelgrid/internal/layout"
)

var (
	// ErrUnknownProject is returned for a project the registry does not have.
	ErrUnknownProject = errors.New("unknown project")
	// ErrInvalidData is returned for task data that is not a JSON object.
	ErrInvalidData = errors.New("invalid task data")
)

// RenderTask renders a project's layout against one task's JSON data and
// encodes the result in the given format. Render issues are logged as
// warnings and returned with the output; they never fail the render.
func (a *App) RenderTask(ctx context.Context, project string, data []byte, format string) ([]byte, *expand.Report, error) {
	logger := ctxlog.FromContext(ctx).With("project", project)

	tmpl, err := a.template(project)
	if err != nil {
		return nil, nil, err
	}

	dataCtx, err := a.dataContext(data)
	if err != nil {
		return nil, nil, err
	}
	a.logUndeclared(ctx, project, dataCtx)

	out, report := expand.Render(tmpl, dataCtx)
	for _, issue := range report.Issues {
		logger.Warn("Render issue.",
			"kind", issue.Kind.String(),
			"tag", issue.Tag,
			"line", issue.Pos.Line,
			"binding", issue.Binding,
			"omitted", issue.Omitted,
			"message", issue.Message,
		)
	}

	var encoded bytes.Buffer
	if err := encode(&encoded, out, format); err != nil {
		return nil, nil, err
	}
	logger.Debug("Task rendered.", "format", format, "issues", len(report.Issues), "bytes", encoded.Len())
	return encoded.Bytes(), report, nil
}

func (a *App) template(project string) (*layout.Node, error) {
	if _, ok := a.registry.Project(project); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProject, project)
	}
	return a.registry.Template(project)
}

// logUndeclared reports data fields the project does not declare as inputs.
func (a *App) logUndeclared(ctx context.Context, project string, data *binding.Context) {
	_, fields, err := a.registry.InputFields(project)
	if err != nil {
		return
	}
	declared := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		declared[f] = struct{}{}
	}
	for _, name := range data.Names() {
		if _, ok := declared[name]; !ok {
			ctxlog.FromContext(ctx).Debug("Task data has a field the project does not declare.", "project", project, "field", name)
		}
	}
}

func encode(w io.Writer, root *layout.Node, format string) error {
	switch format {
	case FormatXML, "":
		return layout.Write(w, root)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(root); err != nil {
			return fmt.Errorf("failed to encode render: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// extension returns the file extension for rendered output.
func extension(format string) string {
	if format == FormatJSON {
		return ".json"
	}
	return ".xml"
}
