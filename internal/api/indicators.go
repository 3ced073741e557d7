package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
	"research-corev1/internal/resolver"
)

// resolveFn evaluates one indicator for one entity.
type resolveFn func(ctx context.Context, svc *resolver.Service, entity string) (decimal.NullDecimal, error)

// indicatorRequest carries the parameters shared by every indicator route.
type indicatorRequest struct {
	indicator string
	table     string
	source    string
	n         int
}

func parseIndicator(r *http.Request, defN int) (indicatorRequest, error) {
	ind, err := requireParam(r, "indicator")
	if err != nil {
		return indicatorRequest{}, err
	}
	n, err := intParam(r, "n", defN)
	if err != nil {
		return indicatorRequest{}, err
	}
	q := r.URL.Query()
	return indicatorRequest{indicator: ind, table: q.Get("table"), source: q.Get("source"), n: n}, nil
}

type valueResponse struct {
	Entity string  `json:"entity"`
	Value  *string `json:"value"`
	Error  string  `json:"error,omitempty"`
}

func render(entity string, v decimal.NullDecimal, err error) valueResponse {
	out := valueResponse{Entity: entity}
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if v.Valid {
		s := v.Decimal.String()
		out.Value = &s
	}
	return out
}

// serve resolves one entity or, with "entities", a batch. Batch items
// carry their own error; only a failed batch fails the request.
func (h *handler) serve(w http.ResponseWriter, r *http.Request, req indicatorRequest, fn resolveFn) {
	svc, err := h.d.Services(req.source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ents, batch, err := entities(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !batch {
		v, err := fn(r.Context(), svc, ents[0])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, render(ents[0], v, nil))
		return
	}

	res, err := svc.ResolveMany(r.Context(), ents, func(ctx context.Context, e string) (decimal.NullDecimal, error) {
		return fn(ctx, svc, e)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]valueResponse, 0, len(res))
	seen := make(map[string]bool, len(ents))
	for _, e := range ents {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, render(e, res[e].Value, res[e].Err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"indicator": req.indicator, "results": out})
}

func floatValue(f float64, err error) (decimal.NullDecimal, error) {
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f)), nil
}

func (h *handler) refq(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	policy := model.LookbackFourPeriods
	if s := r.URL.Query().Get("fill"); s != "" {
		p, ok := model.ParseFillPolicy(s)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: unknown fill policy %q", errBadParam, s))
			return
		}
		policy = p
	}
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		return svc.Refq(ctx, req.indicator, req.n, policy, req.table, e)
	})
}

func (h *handler) stdev(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 4)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		return floatValue(svc.Stdev(ctx, req.indicator, req.n, req.table, e))
	})
}

func (h *handler) accuq(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		return svc.AccuQ(ctx, req.indicator, req.n, req.table, e)
	})
}

func (h *handler) annual(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		return svc.Annual(ctx, req.indicator, req.n, req.table, e)
	})
}

func (h *handler) ma(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 5)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		avg, err := svc.MA(ctx, req.indicator, req.n, req.table, e)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(avg), nil
	})
}

func (h *handler) percentRank(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 20)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		return floatValue(svc.PercentRank(ctx, req.indicator, req.n, req.table, e))
	})
}

// lastValue takes one or more "cond" parameters such as cond=closePrice>10.
func (h *handler) lastValue(w http.ResponseWriter, r *http.Request) {
	req, err := parseIndicator(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conds := r.URL.Query()["cond"]
	h.serve(w, r, req, func(ctx context.Context, svc *resolver.Service, e string) (decimal.NullDecimal, error) {
		return svc.LastValue(ctx, req.indicator, conds, req.table, e)
	})
}
