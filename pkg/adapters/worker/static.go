package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
)

// ErrStaticFailure is returned by a Static worker configured to fail.
var ErrStaticFailure = errors.New("static worker configured to fail")

// Static answers every task with the same text.
type Static struct {
	desc     domain.WorkerDescriptor
	text     string
	redirect domain.WorkerName
	delay    time.Duration
	fail     bool
	healthy  atomic.Bool
	calls    atomic.Int64
}

// StaticOption configures a Static worker.
type StaticOption func(*Static)

// WithSummary sets the description shown to the oracle.
func WithSummary(summary string) StaticOption {
	return func(s *Static) {
		s.desc.Summary = summary
	}
}

// WithTags sets the descriptor tags, e.g. domain.TagMedia.
func WithTags(tags ...string) StaticOption {
	return func(s *Static) {
		s.desc.Tags = tags
	}
}

// WithRedirect makes every answer hand off to another worker.
func WithRedirect(to domain.WorkerName) StaticOption {
	return func(s *Static) {
		s.redirect = to
	}
}

// WithDelay makes every answer take at least d, honouring cancellation.
func WithDelay(d time.Duration) StaticOption {
	return func(s *Static) {
		s.delay = d
	}
}

// WithFailure makes every call fail.
func WithFailure() StaticOption {
	return func(s *Static) {
		s.fail = true
	}
}

// NewStatic creates a canned-answer worker.
func NewStatic(name domain.WorkerName, text string, opts ...StaticOption) *Static {
	s := &Static{
		desc: domain.WorkerDescriptor{Name: name, Summary: "Canned answers for " + name.Title()},
		text: text,
	}
	s.healthy.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessQuery implements ports.Worker.
func (s *Static) ProcessQuery(ctx context.Context, task domain.Task) (domain.DispatchResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.DispatchResult{}, ctx.Err()
		}
	}
	if s.fail {
		return domain.DispatchResult{}, ErrStaticFailure
	}
	res := domain.Succeeded(s.desc.Name, s.text)
	res.RedirectTo = s.redirect
	return res, nil
}

// Capabilities implements ports.Worker.
func (s *Static) Capabilities() domain.WorkerDescriptor {
	d := s.desc.Clone()
	d.Healthy = s.healthy.Load()
	return d
}

// HealthCheck implements ports.Worker.
func (s *Static) HealthCheck(ctx context.Context) bool {
	return s.healthy.Load()
}

// SetHealthy flips what HealthCheck reports.
func (s *Static) SetHealthy(ok bool) {
	s.healthy.Store(ok)
}

// Calls returns how many tasks the worker received.
func (s *Static) Calls() int {
	return int(s.calls.Load())
}
