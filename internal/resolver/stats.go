package resolver

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

// StandardDeviation is the sample standard deviation (N-1) of the non-null
// values among the most recent n periods.
func StandardDeviation(series model.Series, n int) (float64, error) {
	if n < 0 {
		return 0, fmt.Errorf("stdev n=%d: %w", n, model.ErrInvalidArgumentCount)
	}
	if n < len(series) {
		series = series[:n]
	}
	vals := make([]decimal.Decimal, 0, len(series))
	for _, r := range series {
		if r.Value.Valid {
			vals = append(vals, r.Value.Decimal)
		}
	}
	if len(vals) < 2 {
		return 0, fmt.Errorf("stdev needs 2 values, have %d: %w", len(vals), model.ErrInsufficientData)
	}
	mean := decimal.Sum(vals[0], vals[1:]...).Div(decimal.NewFromInt(int64(len(vals))))
	ss := decimal.Zero
	for _, v := range vals {
		d := v.Sub(mean)
		ss = ss.Add(d.Mul(d))
	}
	variance := ss.Div(decimal.NewFromInt(int64(len(vals) - 1)))
	return math.Sqrt(variance.InexactFloat64()), nil
}

// MovingAverage is the mean of the non-null values among the most recent
// n observations (obs newest first); n == 0 averages all of them.
func MovingAverage(obs []model.Observation, n int) (decimal.Decimal, error) {
	if n < 0 {
		return decimal.Zero, fmt.Errorf("ma n=%d: %w", n, model.ErrInvalidArgumentCount)
	}
	if n > 0 && n < len(obs) {
		obs = obs[:n]
	}
	sum := decimal.Zero
	count := 0
	for _, o := range obs {
		if o.Value.Valid {
			sum = sum.Add(o.Value.Decimal)
			count++
		}
	}
	if count == 0 {
		return decimal.Zero, fmt.Errorf("ma over %d observations: %w", len(obs), model.ErrInsufficientData)
	}
	return sum.Div(decimal.NewFromInt(int64(count))), nil
}

// PercentileRank ranks obs[0] (today) among the most recent n+1
// observations with ascending competition ranking, 0-indexed, divided by
// n. Null values take no part in the ranking.
func PercentileRank(obs []model.Observation, n int) (float64, error) {
	if len(obs) == 0 {
		return 0, fmt.Errorf("percent rank: %w", model.ErrEmptyResult)
	}
	if n < 1 {
		return 0, fmt.Errorf("percent rank n=%d: %w", n, model.ErrInsufficientData)
	}
	if len(obs) > n+1 {
		obs = obs[:n+1]
	}
	today := obs[0].Value
	if !today.Valid {
		return 0, fmt.Errorf("percent rank: today's value is null: %w", model.ErrInsufficientData)
	}
	below := 0
	for _, o := range obs[1:] {
		if o.Value.Valid && o.Value.Decimal.LessThan(today.Decimal) {
			below++
		}
	}
	return float64(below) / float64(n), nil
}

// LastValueMatching returns the value of the most recent observation whose
// columns satisfy every predicate, or null when none does. A predicate on
// a column the observation does not carry never matches.
func LastValueMatching(obs []model.Observation, preds []model.Condition) decimal.NullDecimal {
	var (
		best  decimal.NullDecimal
		bestT time.Time
		found bool
	)
	for _, o := range obs {
		if found && !o.TradeDate.After(bestT) {
			continue
		}
		ok := true
		for _, p := range preds {
			v, has := o.Column(p.Column)
			if !has || !p.Match(v) {
				ok = false
				break
			}
		}
		if ok {
			best, bestT, found = o.Value, o.TradeDate, true
		}
	}
	return best
}
