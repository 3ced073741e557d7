package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"research-corev1/internal/logger"
	"research-corev1/internal/model"
	"research-corev1/internal/store"
)

// errBadParam marks malformed or missing query parameters.
var errBadParam = errors.New("bad parameter")

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, model.ErrInvalidDateFormat),
		errors.Is(err, model.ErrInvalidArgumentCount),
		errors.Is(err, model.ErrTypeMismatch),
		errors.Is(err, model.ErrInvalidIdentifier),
		errors.Is(err, model.ErrInvalidCondition):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrEmptyResult),
		errors.Is(err, store.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, model.ErrDivisionByZero):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", append(logger.LogWithTrace(r.Context()),
			slog.String("path", r.URL.Path), slog.String("err", err.Error()))...)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// traceFromRequestID carries chi's request ID as the logging trace ID.
func traceFromRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logger.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requireParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: missing %s", errBadParam, name)
	}
	return v, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadParam, name)
	}
	return n, nil
}

// entities reads "entity" (one) or "entities" (comma separated).
func entities(r *http.Request) ([]string, bool, error) {
	if v := strings.TrimSpace(r.URL.Query().Get("entities")); v != "" {
		var out []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
		if len(out) > 0 {
			return out, true, nil
		}
	}
	e, err := requireParam(r, "entity")
	if err != nil {
		return nil, false, err
	}
	return []string{e}, false, nil
}
