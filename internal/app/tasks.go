package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/taskstore"
)

// taskFile is one entry of an import file.
type taskFile struct {
	Project string          `json:"project"`
	Data    json.RawMessage `json:"data"`
}

// ImportTasks loads a JSON list of tasks, `[{"project": ..., "data": {...}}]`,
// into the task store and returns how many were stored. Every entry is
// checked before anything is written.
func (a *App) ImportTasks(ctx context.Context, path string) (int, error) {
	logger := ctxlog.FromContext(ctx)
	if a.store == nil {
		return 0, errors.New("no task database configured")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read task file: %w", err)
	}
	var entries []taskFile
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("failed to decode task file %s: %w", path, err)
	}

	var errs []error
	tasks := make([]*taskstore.Task, 0, len(entries))
	for i, e := range entries {
		if _, ok := a.registry.Project(e.Project); !ok {
			errs = append(errs, fmt.Errorf("task %d: %w %q", i, ErrUnknownProject, e.Project))
			continue
		}
		if err := a.checkData(e.Data); err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", i, err))
			continue
		}
		tasks = append(tasks, &taskstore.Task{Project: e.Project, Data: e.Data})
	}
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}

	if err := a.store.PutAll(ctx, tasks); err != nil {
		return 0, err
	}
	for _, task := range tasks {
		logger.Debug("Task imported.", "id", task.ID, "project", task.Project)
	}
	logger.Info("Tasks imported.", "count", len(entries), "file", path)
	return len(entries), nil
}

// checkData makes sure task data is a JSON object that a data context can be
// built from.
func (a *App) checkData(data json.RawMessage) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: data must be a JSON object", ErrInvalidData)
	}
	value, err := a.converter.ToCtyValue(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if _, err := binding.ContextFromValue(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}
