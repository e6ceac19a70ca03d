package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/vk/labelgrid/internal/annotation"
	"github.com/vk/labelgrid/internal/ctxlog"
)

// Run executes the work selected by the configuration, in this order:
// registry check, task import, draft conversion or single task render,
// stored task render, and the render server. With nothing selected it prints the registry summary.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	cfg := a.cfg
	if cfg.Check {
		a.logger.Info("Registry is valid.", "projects", len(a.registry.Names()))
		return a.printSummary()
	}

	did := false
	if cfg.ImportPath != "" {
		if _, err := a.ImportTasks(ctx, cfg.ImportPath); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		did = true
	}

	if cfg.Project != "" && cfg.DraftPath != "" {
		if err := a.draftFile(ctx); err != nil {
			return err
		}
		did = true
	} else if cfg.Project != "" && cfg.DataPath != "" {
		if err := a.renderFile(ctx); err != nil {
			return err
		}
		did = true
	} else if cfg.Project != "" && a.store != nil {
		if _, err := a.RenderStored(ctx, cfg.Project); err != nil {
			return fmt.Errorf("rendering stored tasks failed: %w", err)
		}
		did = true
	}

	if cfg.ServePort > 0 {
		return a.serve(ctx, cfg.ServePort)
	}

	if !did {
		a.logger.Warn("Nothing to do: no project, import or server selected.")
		return a.printSummary()
	}
	return nil
}

// renderFile renders the configured data file and writes the result to the
// output directory, or to the output writer when none is set.
func (a *App) renderFile(ctx context.Context) error {
	data, err := os.ReadFile(a.cfg.DataPath)
	if err != nil {
		return fmt.Errorf("failed to read task data: %w", err)
	}

	out, _, err := a.RenderTask(ctx, a.cfg.Project, data, a.cfg.Format)
	if err != nil {
		return err
	}

	if a.cfg.OutDir == "" {
		_, err = a.outW.Write(out)
		return err
	}

	dir := filepath.Join(a.cfg.OutDir, a.cfg.Project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(a.cfg.DataPath), filepath.Ext(a.cfg.DataPath))
	path := filepath.Join(dir, name+extension(a.cfg.Format))
	if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	a.logger.Info("Task rendered.", "project", a.cfg.Project, "file", path)
	return nil
}

// draftFile converts the configured draft into annotation results and writes
// them as JSON to the output writer. The data file, when set, supplies the
// task's input data.
func (a *App) draftFile(ctx context.Context) error {
	draft, err := os.ReadFile(a.cfg.DraftPath)
	if err != nil {
		return fmt.Errorf("failed to read draft: %w", err)
	}
	var data []byte
	if a.cfg.DataPath != "" {
		if data, err = os.ReadFile(a.cfg.DataPath); err != nil {
			return fmt.Errorf("failed to read task data: %w", err)
		}
	}

	results, err := a.DraftResults(ctx, a.cfg.Project, data, draft)
	if err != nil {
		return err
	}
	if results == nil {
		results = []annotation.Result{}
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// printSummary writes the registered projects grouped by domain.
func (a *App) printSummary() error {
	var b strings.Builder
	byDomain := a.registry.ByDomain()
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		fmt.Fprintf(&b, "%s\n", d)
		for _, name := range byDomain[d] {
			p, _ := a.registry.Project(name)
			fmt.Fprintf(&b, "  %s (%s)\n", name, p.Template)
		}
	}
	_, err := fmt.Fprint(a.outW, b.String())
	return err
}
