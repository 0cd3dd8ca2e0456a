package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Reader fetches the aggregated days of one month.
type Reader interface {
	Calendar(ctx context.Context, year, month int) ([]core.CalendarDay, error)
}

// DefaultLoadTimeout bounds a shared month load that no caller cancels.
const DefaultLoadTimeout = 15 * time.Second

// Store caches month data per session scope. Concurrent misses for the same
// scope and month share one upstream call. Every Invalidate starts a new
// generation of the scope; loads begun in an older generation are returned
// to their callers but never cached.
type Store struct {
	cache  cache.Cache[[]core.CalendarDay]
	group  singleflight.Group
	logger *applog.Logger

	// LoadTimeout bounds the shared upstream call.
	LoadTimeout time.Duration

	mu          sync.Mutex
	generations map[string]uint64
}

func NewStore(c cache.Cache[[]core.CalendarDay], logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Store{
		cache:       c,
		logger:      logger.WithComponent(applog.ComponentCalendar),
		LoadTimeout: DefaultLoadTimeout,
		generations: make(map[string]uint64),
	}
}

// Scope derives a cache scope from a session id without keeping the id
// itself in memory keys or logs.
func Scope(sessionID string) string {
	if sessionID == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:8])
}

func key(scope string, m Month) string {
	return scope + "|" + m.Key()
}

func (s *Store) generation(scope string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[scope]
}

// setIfCurrent caches days unless scope was invalidated after gen began.
func (s *Store) setIfCurrent(scope, k string, gen uint64, days []core.CalendarDay) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[scope] != gen {
		return false
	}
	s.cache.Set(k, days)
	return true
}

// Get returns the month's days from cache or reader. The shared load is
// detached from any single caller, so one caller going away does not fail
// the others; each caller still stops waiting when its own ctx ends.
func (s *Store) Get(ctx context.Context, scope string, r Reader, m Month) ([]core.CalendarDay, error) {
	k := key(scope, m)
	if days, ok := s.cache.Get(k); ok {
		s.logger.DebugContext(ctx, "Calendar cache hit",
			applog.FieldCacheScope, scope, applog.FieldYear, m.Year, applog.FieldMonth, int(m.Month))
		return days, nil
	}
	gen := s.generation(scope)
	ch := s.group.DoChan(k+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if s.LoadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, s.LoadTimeout)
			defer cancel()
		}
		days, err := r.Calendar(loadCtx, m.Year, int(m.Month))
		if err != nil {
			return nil, err
		}
		if !s.setIfCurrent(scope, k, gen, days) {
			s.logger.DebugContext(loadCtx, "Calendar load outlived invalidation, not cached",
				applog.FieldCacheScope, scope, applog.FieldYear, m.Year, applog.FieldMonth, int(m.Month))
		}
		return days, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load calendar %s: %w", m.Key(), res.Err)
		}
		return res.Val.([]core.CalendarDay), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("load calendar %s: %w", m.Key(), ctx.Err())
	}
}

// Day returns one day's data; a day with no transactions is returned empty
// rather than as an error.
func (s *Store) Day(ctx context.Context, scope string, r Reader, date string) (core.CalendarDay, error) {
	t, err := time.Parse(core.DayLayout, strings.TrimSpace(date))
	if err != nil {
		return core.CalendarDay{}, fmt.Errorf("%w: date %q", ErrInvalidMonth, date)
	}
	m, err := NewMonth(t.Year(), int(t.Month()))
	if err != nil {
		return core.CalendarDay{}, err
	}
	days, err := s.Get(ctx, scope, r, m)
	if err != nil {
		return core.CalendarDay{}, err
	}
	date = t.Format(core.DayLayout)
	if d, ok := Index(days)[date]; ok {
		return d, nil
	}
	return core.CalendarDay{Date: date}, nil
}

// Invalidate drops every cached month of scope and starts its next
// generation, so loads already in flight are neither cached nor joined.
func (s *Store) Invalidate(ctx context.Context, scope string) {
	prefix := scope + "|"
	s.mu.Lock()
	s.generations[scope]++
	n := s.cache.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	s.mu.Unlock()
	if n > 0 {
		s.logger.DebugContext(ctx, "Calendar cache invalidated",
			applog.FieldCacheScope, scope, applog.FieldEvicted, n)
	}
}
