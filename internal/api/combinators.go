package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"research-corev1/internal/combinator"
	"research-corev1/internal/model"
)

type combinatorRequest struct {
	Args []any `json:"args"`
}

// decodeArgs reads {"args": [...]}; numbers stay exact as decimal text.
func decodeArgs(r *http.Request) ([]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req combinatorRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadParam, err)
	}
	for i, a := range req.Args {
		if n, ok := a.(json.Number); ok {
			d, err := decimal.NewFromString(n.String())
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errBadParam, err)
			}
			req.Args[i] = d
		}
	}
	return req.Args, nil
}

func want(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s takes %d operands, got %d: %w", name, n, len(args), model.ErrInvalidArgumentCount)
	}
	return nil
}

func (h *handler) combinator(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	args, err := decodeArgs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var out any
	switch name {
	case "ifnull":
		if err = want(name, args, 2); err == nil {
			out = combinator.IfNull(args[0], args[1])
		}
	case "not":
		if err = want(name, args, 1); err == nil {
			out, err = combinator.Not(args[0])
		}
	case "and":
		out, err = combinator.And(args...)
	case "or":
		out, err = combinator.Or(args...)
	case "mod":
		if err = want(name, args, 2); err == nil {
			out, err = decimalOut(combinator.Mod(args[0], args[1]))
		}
	case "power":
		if err = want(name, args, 2); err == nil {
			out, err = decimalOut(combinator.Power(args[0], args[1]))
		}
	case "abs":
		if err = want(name, args, 1); err == nil {
			out, err = decimalOut(combinator.Abs(args[0]))
		}
	case "greater":
		out, err = decimalOut(combinator.Greater(args...))
	case "less":
		out, err = decimalOut(combinator.Less(args...))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown combinator " + name})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d, ok := out.(decimal.Decimal); ok {
		out = d.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"combinator": name, "result": out})
}

func decimalOut(d decimal.Decimal, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return d.String(), nil
}
