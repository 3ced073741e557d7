// Package resolver derives indicator values from fetched report series and
// market observations: fill-forward, moving average, standard deviation,
// percentile rank and conditional last-value lookups.
package resolver

import (
	"github.com/shopspring/decimal"

	"research-corev1/internal/model"
)

// lookbackPeriods is how many prior periods LookbackFourPeriods inspects.
const lookbackPeriods = 4

// ResolveWithFill returns series[0]'s value, or applies p when it is null.
// series is newest first; an empty series counts as a null target.
func ResolveWithFill(series model.Series, p model.FillPolicy) decimal.NullDecimal {
	if len(series) > 0 && series[0].Value.Valid {
		return series[0].Value
	}
	switch p {
	case model.LookbackFourPeriods:
		for i := 1; i <= lookbackPeriods && i < len(series); i++ {
			if series[i].Value.Valid {
				return series[i].Value
			}
		}
		return decimal.NullDecimal{}
	case model.ZeroFill:
		return decimal.NewNullDecimal(decimal.Zero)
	default:
		return decimal.NullDecimal{}
	}
}
