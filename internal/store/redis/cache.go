// Package redis is a read-through Redis cache in front of a data-store
// Querier. Cache failures never fail a query; a circuit breaker stops
// the cache round trips while Redis is unreachable.
package redis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"research-corev1/internal/model"
)

// Config configures the Redis connection and cache behaviour.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// NewClient connects to Redis and pings the server.
func NewClient(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Printf("[redis-cache] connected to %s", cfg.Addr)
	return client, nil
}

// CachingQuerier memoises Query results in Redis for TTL. A nil client
// turns it into a pass-through.
type CachingQuerier struct {
	next   model.Querier
	client *goredis.Client
	ttl    time.Duration
	prefix string
	cb     *CircuitBreaker

	OnHit  func(source string)
	OnMiss func(source string)
}

var _ model.Querier = (*CachingQuerier)(nil)

// NewCachingQuerier wraps next.
func NewCachingQuerier(next model.Querier, client *goredis.Client, cfg Config) *CachingQuerier {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "rescore:q:"
	}
	cb := NewCircuitBreaker(5, 30*time.Second)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis-cache] circuit %s -> %s", from, to)
	}
	return &CachingQuerier{next: next, client: client, ttl: ttl, prefix: prefix, cb: cb}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *CachingQuerier) Breaker() *CircuitBreaker { return c.cb }

// Query serves spec from the cache when present, otherwise from next.
func (c *CachingQuerier) Query(ctx context.Context, source string, spec model.FilterSpec) (model.Table, error) {
	if c.client == nil {
		return c.next.Query(ctx, source, spec)
	}
	key, err := c.key(source, spec)
	if err != nil {
		return c.next.Query(ctx, source, spec)
	}

	var raw []byte
	err = c.cb.Execute(func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err == nil && raw != nil {
		if tbl, derr := decodeTable(raw); derr == nil {
			if c.OnHit != nil {
				c.OnHit(source)
			}
			return tbl, nil
		}
	}
	if c.OnMiss != nil {
		c.OnMiss(source)
	}

	tbl, err := c.next.Query(ctx, source, spec)
	if err != nil {
		return tbl, err
	}
	if enc, eerr := encodeTable(tbl); eerr == nil {
		if werr := c.cb.Execute(func() error {
			return c.client.Set(ctx, key, enc, c.ttl).Err()
		}); werr != nil && werr != ErrCircuitOpen {
			log.Printf("[redis-cache] set %s: %v", key, werr)
		}
	}
	return tbl, nil
}

// Invalidate drops every cached entry for source.
func (c *CachingQuerier) Invalidate(ctx context.Context, source string) (int, error) {
	if c.client == nil {
		return 0, nil
	}
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+source+":*", 256).Result()
		if err != nil {
			return n, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return n, fmt.Errorf("redis del: %w", err)
			}
			n += len(keys)
		}
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}

func (c *CachingQuerier) key(source string, spec model.FilterSpec) (string, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return c.prefix + source + ":" + hex.EncodeToString(sum[:]), nil
}

// encodeTable renders a table as JSON with values normalised to text
// where JSON would lose information: bytes become strings, timestamps
// become RFC 3339.
func encodeTable(t model.Table) ([]byte, error) {
	out := model.Table{Columns: t.Columns, Rows: make([]model.Row, len(t.Rows))}
	for i, r := range t.Rows {
		nr := make(model.Row, len(r))
		for k, v := range r {
			switch x := v.(type) {
			case []byte:
				nr[k] = string(x)
			case time.Time:
				nr[k] = x.Format(time.RFC3339)
			default:
				nr[k] = v
			}
		}
		out.Rows[i] = nr
	}
	return json.Marshal(out)
}

// decodeTable reverses encodeTable. Numbers come back as their literal
// text so decimal conversion stays exact.
func decodeTable(b []byte) (model.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var t model.Table
	if err := dec.Decode(&t); err != nil {
		return model.Table{}, err
	}
	for _, r := range t.Rows {
		for k, v := range r {
			if n, ok := v.(json.Number); ok {
				r[k] = n.String()
			}
		}
	}
	return t, nil
}
