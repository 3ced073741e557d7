package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"research-corev1/internal/model"
)

func countingQuerier(calls *int32) model.Querier {
	return model.QuerierFunc(func(ctx context.Context, source string, spec model.FilterSpec) (model.Table, error) {
		atomic.AddInt32(calls, 1)
		return model.Table{
			Columns: []string{"endDate", "revenue", "ID"},
			Rows: []model.Row{
				{"endDate": []byte("2023-12-31"), "revenue": "123456789012.345678901", "ID": int64(7)},
			},
		}, nil
	})
}

func TestCachingQuerier_NilClientPassesThrough(t *testing.T) {
	var calls int32
	c := NewCachingQuerier(countingQuerier(&calls), nil, Config{})
	for i := 0; i < 3; i++ {
		if _, err := c.Query(context.Background(), "fdmt_is", model.FilterSpec{Entity: "600000"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("expected 3 store calls, got %d", calls)
	}
}

func TestCachingQuerier_UnreachableRedisFallsBack(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	var calls, misses int32
	c := NewCachingQuerier(countingQuerier(&calls), client, Config{})
	c.OnMiss = func(string) { atomic.AddInt32(&misses, 1) }

	for i := 0; i < 4; i++ {
		tbl, err := c.Query(context.Background(), "fdmt_is", model.FilterSpec{Entity: "600000"})
		if err != nil {
			t.Fatalf("cache failure must not fail the query: %v", err)
		}
		if tbl.Len() != 1 {
			t.Fatalf("expected 1 row, got %d", tbl.Len())
		}
	}
	if calls != 4 || misses != 4 {
		t.Errorf("expected 4 store calls and misses, got %d/%d", calls, misses)
	}
	// get and set each count as one failure
	if c.Breaker().CurrentState() != StateOpen {
		t.Errorf("expected breaker open, got %v", c.Breaker().CurrentState())
	}
}

func TestCachingQuerier_KeyDependsOnSourceAndSpec(t *testing.T) {
	c := NewCachingQuerier(nil, nil, Config{Prefix: "p:"})
	k1, _ := c.key("fdmt_is", model.FilterSpec{Entity: "600000"})
	k2, _ := c.key("fdmt_is", model.FilterSpec{Entity: "600000"})
	k3, _ := c.key("fdmt_is", model.FilterSpec{Entity: "000001"})
	k4, _ := c.key("fdmt_bs", model.FilterSpec{Entity: "600000"})
	if k1 != k2 {
		t.Error("identical requests must share a key")
	}
	if k1 == k3 || k1 == k4 {
		t.Error("different requests must not share a key")
	}
	if k1[:10] != "p:fdmt_is:" {
		t.Errorf("unexpected key layout %q", k1)
	}
}

func TestTableCodec_KeepsDecimalTextAndDates(t *testing.T) {
	src := model.Table{
		Columns: []string{"endDate", "tradeDate", "revenue", "closePrice", "ID", "note"},
		Rows: []model.Row{{
			"endDate":    []byte("2023-12-31"),
			"tradeDate":  time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			"revenue":    "123456789012.345678901",
			"closePrice": 10.35,
			"ID":         int64(9007199254740993),
			"note":       nil,
		}},
	}
	b, err := encodeTable(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeTable(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	rev, _ := got.Decimal(0, "revenue")
	if rev.Decimal.String() != "123456789012.345678901" {
		t.Errorf("revenue = %s", rev.Decimal.String())
	}
	px, _ := got.Decimal(0, "closePrice")
	if px.Decimal.String() != "10.35" {
		t.Errorf("closePrice = %s", px.Decimal.String())
	}
	id, _ := got.Int(0, "ID")
	if id != 9007199254740993 {
		t.Errorf("ID = %d, large integers must not pass through float64", id)
	}
	for _, col := range []string{"endDate", "tradeDate"} {
		if _, err := got.Date(0, col); err != nil {
			t.Errorf("%s: %v", col, err)
		}
	}
	td, _ := got.Date(0, "tradeDate")
	if model.FormatDate(td) != "2024-01-05" {
		t.Errorf("tradeDate = %s", model.FormatDate(td))
	}
	note, _ := got.Decimal(0, "note")
	if note.Valid {
		t.Error("null must stay null")
	}
}
