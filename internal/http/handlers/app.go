package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"stylefuse/internal/i18n"
	"stylefuse/internal/infra"
	"stylefuse/internal/middleware"
	"stylefuse/internal/session"
)

// App carries the dependencies shared by every handler.
type App struct {
	Sessions       *session.Store
	Catalog        *i18n.Catalog
	Logger         *infra.Logger
	MaxUploadBytes int64
	// BaseCtx bounds generation calls, which outlive the request that
	// triggered them. It is cancelled on shutdown.
	BaseCtx context.Context
}

func NewApp(ctx context.Context, sessions *session.Store, catalog *i18n.Catalog, logger *infra.Logger, maxUploadBytes int64) *App {
	if catalog == nil {
		catalog = i18n.Default()
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &App{
		Sessions:       sessions,
		Catalog:        catalog,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
		BaseCtx:        ctx,
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func (a *App) message(r *http.Request, key string) string {
	return a.Catalog.Message(middleware.LocaleFromContext(r.Context()), key)
}
