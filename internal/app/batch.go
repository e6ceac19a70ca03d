package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/taskstore"
	"golang.org/x/sync/errgroup"
)

// RenderStored renders every stored task of a project with a bounded pool of
// workers. Each render is saved to the task store and, when an output
// directory is configured, written atomically to <out>/<project>/<id>.<ext>.
// It returns the number of tasks rendered.
func (a *App) RenderStored(ctx context.Context, project string) (int, error) {
	logger := ctxlog.FromContext(ctx)
	if a.store == nil {
		return 0, errors.New("no task database configured")
	}
	if _, err := a.template(project); err != nil {
		return 0, err
	}

	tasks, err := a.store.ListByProject(ctx, project)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		logger.Warn("No stored tasks for project.", "project", project)
		return 0, nil
	}

	var dir string
	if a.cfg.OutDir != "" {
		dir = filepath.Join(a.cfg.OutDir, project)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Info("Rendering stored tasks...", "project", project, "tasks", len(tasks), "workers", a.cfg.WorkerCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.WorkerCount)

	for _, task := range tasks {
		g.Go(func() error {
			return a.renderStoredTask(gctx, task, dir)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	logger.Info("Stored tasks rendered.", "project", project, "tasks", len(tasks))
	return len(tasks), nil
}

func (a *App) renderStoredTask(ctx context.Context, task *taskstore.Task, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out, report, err := a.RenderTask(ctx, task.Project, task.Data, a.cfg.Format)
	if err != nil {
		return fmt.Errorf("task %d: %w", task.ID, err)
	}

	if err := a.store.SaveRender(ctx, &taskstore.Render{
		TaskID: task.ID,
		Format: a.cfg.Format,
		Output: out,
		Issues: len(report.Issues),
	}); err != nil {
		return err
	}

	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, strconv.FormatInt(task.ID, 10)+extension(a.cfg.Format))
	if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("task %d: failed to write %s: %w", task.ID, path, err)
	}
	return nil
}
