package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/hole-sync/internal/metric"
)

// Global preference keys. They are not scoped to a hole.
const (
	PrefLang     = "lang"
	PrefSolution = "solution"
	PrefScoring  = "scoring"
	// PrefOwner holds the last ownership reported by the server.
	PrefOwner = "owner"
)

const draftPrefix = "code_"

// Key addresses a draft slot.
type Key struct {
	Hole   string
	Lang   string
	Metric metric.Metric
}

// String returns the storage key, code_<hole>_<lang>_<metric index>.
func (k Key) String() string {
	return fmt.Sprintf("%s%s_%s_%d", draftPrefix, k.Hole, k.Lang, k.Metric.Index())
}

// ParseKey reverses Key.String. The registry rejects language ids with
// underscores, so the hole id is whatever remains after the last two
// segments.
func ParseKey(s string) (Key, bool) {
	if !strings.HasPrefix(s, draftPrefix) {
		return Key{}, false
	}
	rest := strings.TrimPrefix(s, draftPrefix)

	i := strings.LastIndexByte(rest, '_')
	if i < 0 {
		return Key{}, false
	}
	m, err := metric.Parse(rest[i+1:])
	if err != nil {
		return Key{}, false
	}
	rest = rest[:i]

	j := strings.LastIndexByte(rest, '_')
	if j <= 0 || j == len(rest)-1 {
		return Key{}, false
	}
	return Key{Hole: rest[:j], Lang: rest[j+1:], Metric: m}, true
}

// LocalCache stores drafts per (hole, lang, metric). Storage failures never
// surface to callers: a failed write loses the draft and is logged.
type LocalCache struct {
	kv  KV
	log *zap.Logger
}

// NewLocalCache wraps kv. A nil logger discards logs.
func NewLocalCache(kv KV, log *zap.Logger) *LocalCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalCache{kv: kv, log: log}
}

// Read returns the draft for k. Empty drafts are reported as absent.
func (c *LocalCache) Read(ctx context.Context, k Key) (string, bool) {
	code, ok, err := c.kv.Get(ctx, k.String())
	if err != nil {
		c.log.Warn("read draft", zap.String("key", k.String()), zap.Error(err))
		return "", false
	}
	return code, ok && code != ""
}

// Write overwrites the draft for k.
func (c *LocalCache) Write(ctx context.Context, k Key, code string) {
	if err := c.kv.Set(ctx, k.String(), code); err != nil {
		c.log.Warn("draft not saved", zap.String("key", k.String()), zap.Int("size", len(code)), zap.Error(err))
	}
}

// Clear removes the draft for k.
func (c *LocalCache) Clear(ctx context.Context, k Key) {
	if err := c.kv.Remove(ctx, k.String()); err != nil {
		c.log.Warn("clear draft", zap.String("key", k.String()), zap.Error(err))
	}
}

// Pair reads the drafts for both metrics of a hole and language.
func (c *LocalCache) Pair(ctx context.Context, hole, lang string) (codes metric.Pair[string], present metric.Pair[bool]) {
	for _, m := range metric.All {
		code, ok := c.Read(ctx, Key{Hole: hole, Lang: lang, Metric: m})
		codes.Set(m, code)
		present.Set(m, ok)
	}
	return codes, present
}

// Pref returns a global preference value, or "" when unset.
func (c *LocalCache) Pref(ctx context.Context, name string) string {
	v, _, err := c.kv.Get(ctx, name)
	if err != nil {
		c.log.Warn("read preference", zap.String("pref", name), zap.Error(err))
		return ""
	}
	return v
}

// SetPref stores a global preference.
func (c *LocalCache) SetPref(ctx context.Context, name, value string) {
	if err := c.kv.Set(ctx, name, value); err != nil {
		c.log.Warn("preference not saved", zap.String("pref", name), zap.Error(err))
	}
}

// MetricPref returns a metric preference. Missing or unknown values fall
// back to Bytes.
func (c *LocalCache) MetricPref(ctx context.Context, name string) metric.Metric {
	v := c.Pref(ctx, name)
	if v == "" {
		return metric.Bytes
	}
	m, err := metric.Parse(v)
	if err != nil {
		c.log.Debug("unknown metric preference", zap.String("pref", name), zap.String("value", v))
		return metric.Bytes
	}
	return m
}

// SetMetricPref stores a metric preference as "Bytes" or "Chars".
func (c *LocalCache) SetMetricPref(ctx context.Context, name string, m metric.Metric) {
	c.SetPref(ctx, name, m.String())
}
