package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewLogger returns the ECS-formatted JSON logger used for request logs.
func NewLogger(w io.Writer, version string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timeclock"),
		slog.String("version", version),
	)
}

func NewRouter(logger *slog.Logger, allowedOrigins []string, handler TimeclockHandler) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", handler.IngestEvents)

		r.Get("/totals", handler.AllTotals)
		r.Get("/anomalies", handler.Anomalies)
		r.Get("/diagnostics", handler.Diagnostics)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/shifts", handler.UserShifts)
			r.Get("/totals", handler.UserTotals)
			r.Get("/timesheet.csv", handler.TimesheetCSV)
			r.Get("/timesheet.xlsx", handler.TimesheetXLSX)
		})
	})

	return r
}
