package core

// janitor.go runs background maintenance for the console.
//
// Each cycle drops query cache entries nobody has read within the idle TTL
// and expires browser sessions that have been inactive longer than the
// session timeout. The janitor is long-running and context-aware for graceful
// shutdown. It logs what it collected but never fails the application.

import (
	"context"
	"log/slog"
	"time"
)

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	CacheIdleTTL  time.Duration // drop cache entries unread this long (0 disables)
	CheckInterval time.Duration // how often to run (default: 1m)
}

// StartJanitor runs maintenance immediately, then every CheckInterval, until
// ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context, cfg JanitorConfig) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	slog.Info("janitor started",
		"cache_idle_ttl", cfg.CacheIdleTTL,
		"interval", cfg.CheckInterval,
	)

	s.runJanitor(cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return
		case <-ticker.C:
			s.runJanitor(cfg)
		}
	}
}

// runJanitor performs one sweep and returns what it removed.
func (s *Service) runJanitor(cfg JanitorConfig) (entries, sessions int) {
	start := time.Now()
	now := s.client.Now()

	entries = s.client.Store().Sweep(cfg.CacheIdleTTL, now)
	sessions = s.sessions.Expire(now)

	if entries > 0 || sessions > 0 {
		slog.Info("janitor sweep",
			"cache_entries_dropped", entries,
			"sessions_expired", sessions,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		slog.Debug("janitor sweep", "duration_ms", time.Since(start).Milliseconds())
	}
	return entries, sessions
}
