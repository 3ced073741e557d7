package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SOURCES", "EXCHANGE_CD", "CALENDAR_LOOKBACK_DAYS", "CACHE_TTL_SEC", "PERIOD_WALK", "MAX_PARALLEL"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.ExchangeCD != "XSHG" {
		t.Errorf("ExchangeCD = %q", c.ExchangeCD)
	}
	if c.CalendarLookbackDays != 365 {
		t.Errorf("CalendarLookbackDays = %d", c.CalendarLookbackDays)
	}
	if c.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v", c.CacheTTL)
	}
	if c.PeriodWalk != "single" {
		t.Errorf("PeriodWalk = %q", c.PeriodWalk)
	}
	if c.MaxParallel != 8 {
		t.Errorf("MaxParallel = %d", c.MaxParallel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EXCHANGE_CD", "XSHE")
	t.Setenv("CACHE_TTL_SEC", "30")
	t.Setenv("MAX_PARALLEL", "not-a-number")
	c := Load()
	if c.ExchangeCD != "XSHE" {
		t.Errorf("ExchangeCD = %q", c.ExchangeCD)
	}
	if c.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v", c.CacheTTL)
	}
	if c.MaxParallel != 8 {
		t.Errorf("invalid MAX_PARALLEL should fall back, got %d", c.MaxParallel)
	}
}

func TestParseSources(t *testing.T) {
	c := &Config{Sources: " uqer=data/uqer.db, local = /tmp/l.db ,", DefaultSource: "uqer"}
	got, err := c.ParseSources()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got["uqer"] != "data/uqer.db" || got["local"] != "/tmp/l.db" {
		t.Errorf("unexpected sources %v", got)
	}
}

func TestParseSources_Errors(t *testing.T) {
	cases := []Config{
		{Sources: "", DefaultSource: "default"},
		{Sources: "uqer", DefaultSource: "uqer"},
		{Sources: "=path", DefaultSource: "uqer"},
		{Sources: "uqer=a.db", DefaultSource: "other"},
	}
	for _, c := range cases {
		if _, err := c.ParseSources(); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}
