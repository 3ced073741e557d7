package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"research-corev1/internal/model"
)

const dateFmt = "2006-01-02"

func quote(ident string) string { return `"` + ident + `"` }

// buildSelect renders a FilterSpec as a single SELECT with bind args.
// Every identifier is validated first; values are always bound.
func buildSelect(source string, spec model.FilterSpec) (string, []any, error) {
	idents := []string{source}
	idents = append(idents, spec.Columns...)
	for _, c := range []string{spec.EntityColumn, spec.DateColumn, spec.OrderBy} {
		if c != "" {
			idents = append(idents, c)
		}
	}
	for col := range spec.Equals {
		idents = append(idents, col)
	}
	for _, c := range spec.Conditions {
		idents = append(idents, c.Column)
	}
	if spec.Dedup != nil {
		idents = append(idents, spec.Dedup.PartitionBy, spec.Dedup.RankBy)
		if spec.Dedup.TieBreak != "" {
			idents = append(idents, spec.Dedup.TieBreak)
		}
	}
	if err := model.CheckIdentifiers(idents...); err != nil {
		return "", nil, err
	}

	var (
		where []string
		args  []any
	)
	if spec.EntityColumn != "" {
		where = append(where, quote(spec.EntityColumn)+" = ?")
		args = append(args, spec.Entity)
	}
	if spec.DateColumn != "" {
		dc := quote(spec.DateColumn)
		r := spec.Range
		if !r.From.IsZero() {
			where = append(where, dc+" >= ?")
			args = append(args, r.From.Format(dateFmt))
		}
		if !r.To.IsZero() {
			op := " <= ?"
			if r.ToExclusive {
				op = " < ?"
			}
			where = append(where, dc+op)
			args = append(args, r.To.Format(dateFmt))
		}
		if len(r.MonthDays) > 0 {
			likes := make([]string, 0, len(r.MonthDays))
			for _, md := range r.MonthDays {
				likes = append(likes, dc+" LIKE ?")
				args = append(args, "%-"+md)
			}
			where = append(where, "("+strings.Join(likes, " OR ")+")")
		}
	}
	for _, col := range sortedKeys(spec.Equals) {
		where = append(where, quote(col)+" = ?")
		args = append(args, spec.Equals[col])
	}
	for _, c := range spec.Conditions {
		where = append(where, quote(c.Column)+" "+c.Op+" ?")
		args = append(args, c.Value.InexactFloat64())
	}

	cols := "*"
	if len(spec.Columns) > 0 {
		qc := make([]string, len(spec.Columns))
		for i, c := range spec.Columns {
			qc[i] = quote(c)
		}
		cols = strings.Join(qc, ", ")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	tail := ""
	if spec.OrderBy != "" {
		dir := " ASC"
		if spec.Descending {
			dir = " DESC"
		}
		tail += " ORDER BY " + quote(spec.OrderBy) + dir
	}
	if spec.Limit > 0 {
		tail += fmt.Sprintf(" LIMIT %d", spec.Limit)
	}

	if spec.Dedup == nil {
		return "SELECT " + cols + " FROM " + quote(source) + whereSQL + tail, args, nil
	}

	d := spec.Dedup
	rank := quote(d.RankBy) + " DESC"
	if d.TieBreak != "" {
		rank += ", " + quote(d.TieBreak) + " DESC"
	}
	inner := "*"
	if len(spec.Columns) > 0 {
		inner = cols
		for _, extra := range []string{d.PartitionBy, d.RankBy, d.TieBreak} {
			if extra != "" && !contains(spec.Columns, extra) {
				inner += ", " + quote(extra)
			}
		}
	}
	q := "WITH ranked AS (SELECT " + inner +
		", ROW_NUMBER() OVER (PARTITION BY " + quote(d.PartitionBy) + " ORDER BY " + rank + ") AS rn" +
		" FROM " + quote(source) + whereSQL + ")" +
		" SELECT " + cols + " FROM ranked WHERE rn = 1" + tail
	return q, args, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
