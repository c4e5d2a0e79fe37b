package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"truco-table/client/api"
	"truco-table/client/loop"
	"truco-table/client/rating"
	"truco-table/client/store"
)

// ratingWindow is how many recent games the rating replays.
const ratingWindow = 200

// table is the part of the poll loop the HTTP surface drives.
type table interface {
	Screen() loop.Screen
	Start(ctx context.Context, targetScore int) error
	Act(ctx context.Context, action string) error
	Refresh(ctx context.Context) error
	DismissSummary(ctx context.Context) (bool, error)
}

// history is the optional game archive.
type history interface {
	RecentGames(ctx context.Context, limit int) ([]loop.GameRecord, error)
	Game(ctx context.Context, session uuid.UUID) (loop.GameRecord, bool, error)
	Totals(ctx context.Context) (store.Record, error)
}

// Router serves the local table. games may be nil when no database is
// configured; the history routes then answer 404.
func Router(t table, games history, defaultTarget int, log *logrus.Entry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog(log))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "history": games != nil})
	})

	r.Get("/api/view", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Screen())
	})

	r.Post("/api/start", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TargetScore int `json:"target_score"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		target := body.TargetScore
		if target == 0 {
			target = defaultTarget
		}
		if target < 0 {
			writeError(w, http.StatusBadRequest, "target_score must be positive")
			return
		}
		if err := t.Start(r.Context(), target); err != nil {
			writeLoopError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Screen())
	})

	r.Post("/api/action", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Action string `json:"action"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.Action == "" {
			writeError(w, http.StatusBadRequest, "missing action")
			return
		}
		if err := t.Act(r.Context(), body.Action); err != nil {
			writeLoopError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t.Screen())
	})

	r.Post("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if err := t.Refresh(r.Context()); err != nil {
			writeLoopError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	})

	r.Post("/api/summary/dismiss", func(w http.ResponseWriter, r *http.Request) {
		dismissed, err := t.DismissSummary(r.Context())
		if err != nil {
			writeLoopError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"dismissed": dismissed})
	})

	r.Route("/api/games", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if games == nil {
					writeError(w, http.StatusNotFound, "game history disabled")
					return
				}
				next.ServeHTTP(w, req)
			})
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			rows, err := games.RecentGames(r.Context(), limit)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			totals, err := games.Totals(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"rows":     rows,
				"totals":   totals,
				"win_rate": totals.WinRate(),
			})
		})

		r.Get("/rating", func(w http.ResponseWriter, r *http.Request) {
			rows, err := games.RecentGames(r.Context(), ratingWindow)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, rating.FromGames(rows))
		})

		r.Get("/{session}", func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "session"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad session id")
				return
			}
			g, ok, err := games.Game(r.Context(), id)
			switch {
			case err != nil:
				writeError(w, http.StatusInternalServerError, err.Error())
			case !ok:
				writeError(w, http.StatusNotFound, "no such game")
			default:
				writeJSON(w, http.StatusOK, g)
			}
		})
	})

	return r
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeLoopError(w http.ResponseWriter, err error) {
	var (
		ae *api.ActionError
		te *api.TransportError
	)
	switch {
	case errors.Is(err, loop.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, loop.ErrNoGame):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ae):
		writeError(w, http.StatusUnprocessableEntity, ae.Message)
	case errors.As(err, &te):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, loop.ErrStopped), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func requestLog(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":  r.Method,
				"path":    r.URL.Path,
				"status":  ww.Status(),
				"elapsed": time.Since(start).Round(time.Microsecond),
			}).Debug("http")
		})
	}
}
