package health

import (
	"context"
	"sort"
	"time"
)

const checkTimeout = 2 * time.Second

// Pinger is anything that can report whether a backing dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is the outcome for one dependency.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report is the health payload served at /health.
type Report struct {
	OK     bool      `json:"ok"`
	Checks []Check   `json:"checks"`
	Time   time.Time `json:"time"`
}

// Service pings the configured dependencies. Dependencies that are not
// configured (in-memory mode) are simply not registered.
type Service struct {
	checks map[string]Pinger
	now    func() time.Time
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Pinger{}, now: time.Now}
}

// Register adds a named dependency. A nil pinger is ignored.
func (s *Service) Register(name string, p Pinger) *Service {
	if p != nil {
		s.checks[name] = p
	}
	return s
}

// Status pings every dependency with a short timeout.
func (s *Service) Status(ctx context.Context) Report {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{OK: true, Checks: make([]Check, 0, len(names)), Time: s.now().UTC()}
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.checks[name].Ping(pingCtx)
		cancel()
		check := Check{Name: name, Status: "up"}
		if err != nil {
			check.Status = "down"
			check.Error = err.Error()
			report.OK = false
		}
		report.Checks = append(report.Checks, check)
	}
	return report
}
