// Package v1handler serves the detection form, the passthrough endpoint and
// the health probe.
package v1handler

import (
	"agroscan/internal/submission"
	"agroscan/pkg/detector"
	"agroscan/pkg/logger"
	"agroscan/pkg/serrors"
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templates embed.FS

// Deps are the services the handlers call into.
type Deps struct {
	// Submission drives the form.
	Submission submission.Service
	// Detector is used directly by the passthrough endpoint.
	Detector detector.Client
}

type Handler struct {
	deps Deps
	page *template.Template
}

func New(deps Deps) *Handler {
	return &Handler{
		deps: deps,
		page: template.Must(template.ParseFS(templates, "templates/index.html")),
	}
}

// NewError logs err and maps it to a status code and the message safe to show.
// Server-side failures always show fallback, whatever message they carry.
func (h Handler) NewError(ctx context.Context, err error, fallback string) (int, string) {
	status := serrors.StatusCode(serrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Error(err))

		return status, fallback
	}

	logger.Info(ctx, "request rejected", zap.Error(err))

	return status, serrors.MessageOf(err, fallback)
}

// writeMessage writes a {"message": msg} JSON body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// Health answers liveness probes.
func (h Handler) Health(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str("ok")
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(e.Bytes())
}
