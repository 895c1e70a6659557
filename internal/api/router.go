// Package api exposes preferences over HTTP and the Model Context Protocol.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/doughnut/internal/preference"
)

const maxRequestBodySize = 1 << 20 // 1MB

type Deps struct {
	Prefs  *preference.Preferences
	Token  string
	Logger *slog.Logger
}

// PreferenceView is one key as the API reports it. Value and Default are
// null when absent.
type PreferenceView struct {
	Key     string           `json:"key"`
	Value   preference.Value `json:"value"`
	Default preference.Value `json:"default"`
	Set     bool             `json:"set"`
}

// LibraryView reports the resolved library directory.
type LibraryView struct {
	Path       string `json:"path"`
	Configured bool   `json:"configured"`
}

// Views reports every known key in declaration order.
func Views(p *preference.Preferences) []PreferenceView {
	keys := preference.Keys()
	out := make([]PreferenceView, len(keys))
	for i, k := range keys {
		out[i] = view(p, k)
	}
	return out
}

func view(p *preference.Preferences, k preference.Key) PreferenceView {
	v, set := p.Object(k)
	def, _ := p.Default(k)
	return PreferenceView{Key: k.String(), Value: v, Default: def, Set: set}
}

func libraryView(p *preference.Preferences) LibraryView {
	path, ok := p.LibraryPath()
	return LibraryView{Path: path, Configured: ok}
}

// NewHandler returns the HTTP API. /health is open; everything else needs
// the bearer token.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/preferences", handleListPreferences(deps))
		r.Get("/preferences/{key}", handleGetPreference(deps))
		r.Put("/preferences/{key}", handlePutPreference(deps))
		r.Delete("/preferences/{key}", handleDeletePreference(deps))
		r.Get("/library", handleLibrary(deps))
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListPreferences(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Views(deps.Prefs))
	}
}

func handleGetPreference(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := keyParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, view(deps.Prefs, key))
	}
}

func handlePutPreference(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := keyParam(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var v preference.Value
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := deps.Prefs.Set(key, v); err != nil {
			deps.Logger.Error("preference write failed", "key", key.String(), "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to set %s: %v", key, err)
			return
		}
		deps.Logger.Info("preference updated", "key", key.String(), "type", v.Kind().String())
		writeJSON(w, http.StatusOK, view(deps.Prefs, key))
	}
}

func handleDeletePreference(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := keyParam(w, r)
		if !ok {
			return
		}
		if err := deps.Prefs.Remove(key); err != nil {
			deps.Logger.Error("preference delete failed", "key", key.String(), "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to remove %s: %v", key, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleLibrary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, libraryView(deps.Prefs))
	}
}

func keyParam(w http.ResponseWriter, r *http.Request) (preference.Key, bool) {
	key, err := preference.ParseKey(chi.URLParam(r, "key"))
	if errors.Is(err, preference.ErrUnknownKey) {
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
		return preference.Key{}, false
	}
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return preference.Key{}, false
	}
	return key, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		httpError(w, http.StatusInternalServerError, "server_error", "encoding response: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
