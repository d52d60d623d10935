// internal/schedule/scheduler.go
//
// Package schedule triggers recurring bulk runs. Hourly schedules fire on a
// one-hour ticker; daily and weekly schedules poll every minute for the
// configured HH:MM; monthly schedules poll hourly and fire on the first day
// of the month at the configured time.
package schedule

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// Runner executes the scheduled bulk run.
type Runner func(ctx context.Context, urls []string, dataType string)

// Scheduler owns at most one active schedule. Update replaces it.
type Scheduler struct {
	runner Runner
	logger utils.Logger

	mu     sync.Mutex
	cancel context.CancelFunc

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler that dispatches runs to runner.
func New(runner Runner, logger utils.Logger) *Scheduler {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Scheduler{runner: runner, logger: logger, now: time.Now}
}

// Update replaces the active schedule. A disabled schedule, or one without
// URLs, just stops the current one.
func (s *Scheduler) Update(schedule types.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	urls := cleanURLs(schedule.URLs)
	if !schedule.Enabled || len(urls) == 0 {
		s.logger.Debug("schedule disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx, schedule, urls)
	s.logger.WithFields(map[string]any{
		"frequency": schedule.Frequency,
		"urls":      len(urls),
	}).Info("schedule active")
}

// Stop cancels the active schedule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) loop(ctx context.Context, schedule types.Schedule, urls []string) {
	interval := pollInterval(schedule.Frequency)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if schedule.Frequency == "hourly" || shouldRun(schedule, s.now()) {
				s.logger.WithField("urls", len(urls)).Info("running scheduled scrape")
				s.runner(ctx, urls, schedule.DataType)
			}
		}
	}
}

// pollInterval returns the check cadence per frequency: hourly fires on its
// own ticker, daily/weekly check minutely, monthly checks hourly.
func pollInterval(frequency string) time.Duration {
	switch frequency {
	case "hourly":
		return time.Hour
	case "monthly":
		return time.Hour
	default:
		return time.Minute
	}
}

// shouldRun reports whether the schedule is due at the given instant.
func shouldRun(schedule types.Schedule, now time.Time) bool {
	hours, minutes, ok := parseClock(schedule.Time)
	if !ok {
		return false
	}
	switch schedule.Frequency {
	case "daily":
		return now.Hour() == hours && now.Minute() == minutes
	case "weekly":
		return int(now.Weekday()) == schedule.DayOfWeek &&
			now.Hour() == hours && now.Minute() == minutes
	case "monthly":
		// First of the month; the hourly poll only guarantees hour accuracy.
		return now.Day() == 1 && now.Hour() == hours && now.Minute() == minutes
	}
	return false
}

func parseClock(value string) (hours, minutes int, ok bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return hours, minutes, true
}

func cleanURLs(urls []string) []string {
	var out []string
	for _, u := range urls {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
