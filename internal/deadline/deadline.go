// Package deadline assigns soft deadlines to tasks according to the user's path.
//
// Structured paths spread deadlines evenly between now and the estimated
// completion date, blended paths add up to ±20% jitter, open paths carry none.
package deadline

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"forest.app/forest/internal/domain"
)

const (
	DefaultJitterPct = 0.20
	FallbackSpan     = 7 * 24 * time.Hour

	// Layout is ISO-8601 UTC without fractional seconds.
	Layout = "2006-01-02T15:04:05Z"
)

var ErrNoCompletionDate = errors.New("estimated completion date is required to schedule soft deadlines")

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps, naive ISO timestamps (read as UTC) and plain dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if strings.HasSuffix(s, "Z") {
		return ParseDate(strings.TrimSuffix(s, "Z"))
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

type Scheduler struct {
	JitterPct float64
	now       func() time.Time
	jitter    func() float64 // uniform in [-1, 1]
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithJitterSource replaces the uniform [-1, 1] jitter source.
func WithJitterSource(f func() float64) Option {
	return func(s *Scheduler) { s.jitter = f }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		JitterPct: DefaultJitterPct,
		now:       func() time.Time { return time.Now().UTC() },
		jitter:    func() float64 { return rand.Float64()*2 - 1 },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule writes SoftDeadline on each task. Tasks that already carry one
// keep it unless override is set. The open path clears all deadlines.
func (s *Scheduler) Schedule(path domain.Path, completionDate string, tasks []*domain.Task, override bool) error {
	if strings.EqualFold(string(path), string(domain.PathOpen)) {
		for _, t := range tasks {
			t.SoftDeadline = ""
		}
		return nil
	}

	if strings.TrimSpace(completionDate) == "" {
		return ErrNoCompletionDate
	}
	end, err := ParseDate(completionDate)
	if err != nil {
		return fmt.Errorf("parsing estimated completion date: %w", err)
	}

	if len(tasks) == 0 {
		return nil
	}

	now := s.now()
	if !end.After(now) {
		end = now.Add(FallbackSpan)
	}

	span := end.Sub(now).Seconds()
	step := span / float64(len(tasks))
	blended := strings.EqualFold(string(path), string(domain.PathBlended))

	for i, t := range tasks {
		if !override && t.SoftDeadline != "" {
			continue
		}
		offset := step * float64(i+1)
		if blended {
			offset += s.jitter() * step * s.JitterPct
			offset = domain.Clamp(offset, 0, span)
		}
		t.SoftDeadline = Format(now.Add(time.Duration(offset * float64(time.Second))))
	}
	return nil
}

func Format(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(Layout)
}

// HoursUntil returns the hours left before the task's soft deadline,
// negative once overdue, and +Inf when the task has no (parseable) deadline.
func HoursUntil(t domain.Task, now time.Time) float64 {
	if t.SoftDeadline == "" {
		return math.Inf(1)
	}
	d, err := ParseDate(t.SoftDeadline)
	if err != nil {
		return math.Inf(1)
	}
	return d.Sub(now).Hours()
}

// MaxOverdueHours returns the largest number of hours any task is past its deadline.
func MaxOverdueHours(tasks []domain.Task, now time.Time) float64 {
	worst := 0.0
	for _, t := range tasks {
		if h := HoursUntil(t, now); h < 0 {
			worst = math.Max(worst, -h)
		}
	}
	return worst
}

// OverdueCount counts tasks past their deadline.
func OverdueCount(tasks []domain.Task, now time.Time) int {
	n := 0
	for _, t := range tasks {
		if HoursUntil(t, now) < 0 {
			n++
		}
	}
	return n
}
