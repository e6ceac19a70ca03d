package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vk/labelgrid/internal/annotation"
	"github.com/vk/labelgrid/internal/ctxlog"
)

// maxTaskBody bounds the size of a task posted to the render endpoint.
const maxTaskBody = 8 << 20

// Handler returns the HTTP handler of the render server.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /projects", a.projectsHandler)
	mux.HandleFunc("POST /render/{project}", a.renderHandler)
	mux.HandleFunc("POST /results/{project}", a.resultsHandler)
	return mux
}

// healthHandler logs the health check and answers OK.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

type projectInfo struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Description string   `json:"description,omitempty"`
	Template    string   `json:"template"`
	InputFields []string `json:"input_fields"`
}

func (a *App) projectsHandler(w http.ResponseWriter, r *http.Request) {
	var out []projectInfo
	for _, name := range a.registry.Names() {
		p, _ := a.registry.Project(name)
		info := projectInfo{Name: p.Name, Domain: p.Domain, Description: p.Description, Template: p.Template}
		if p.Input != nil {
			info.InputFields = p.Input.Fields
		}
		out = append(out, info)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		a.logger.Error("Failed to write project list.", "error", err)
	}
}

func (a *App) renderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), a.logger)
	project := r.PathValue("project")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = a.cfg.Format
	}
	if format != FormatXML && format != FormatJSON {
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTaskBody))
	if err != nil {
		http.Error(w, "failed to read task data", http.StatusRequestEntityTooLarge)
		return
	}

	out, report, err := a.RenderTask(ctx, project, body, format)
	switch {
	case errors.Is(err, ErrUnknownProject):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidData):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		a.logger.Error("Render failed.", "project", project, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	if format == FormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/xml")
	}
	w.Header().Set("X-Render-Issues", strconv.Itoa(len(report.Issues)))
	w.Write(out)
}

// draftRequest is the body of a results request.
type draftRequest struct {
	Data  json.RawMessage `json:"data"`
	Draft json.RawMessage `json:"draft"`
}

func (a *App) resultsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), a.logger)
	project := r.PathValue("project")

	var req draftRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTaskBody)).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Draft) == 0 {
		http.Error(w, "request has no draft", http.StatusBadRequest)
		return
	}

	results, err := a.DraftResults(ctx, project, req.Data, req.Draft)
	switch {
	case errors.Is(err, ErrUnknownProject):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidData):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		a.logger.Error("Draft conversion failed.", "project", project, "error", err)
		http.Error(w, "draft conversion failed", http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []annotation.Result{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		a.logger.Error("Failed to write results.", "error", err)
	}
}

// serve runs the render server on port until ctx is done, then shuts it
// down gracefully.
func (a *App) serve(ctx context.Context, port int) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring render server.")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Render server starting", "address", fmt.Sprintf("http://localhost%s", srv.Addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("render server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down render server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Render server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Render server shut down gracefully.")
	return nil
}
