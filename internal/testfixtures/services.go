package testfixtures

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/rules"
	"github.com/example/raid-controller/internal/session"
)

// NoticeRecorder is a session.Notifier that keeps every notice.
type NoticeRecorder struct {
	mu      sync.Mutex
	notices []session.Notice
}

// Notify records n.
func (r *NoticeRecorder) Notify(n session.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *NoticeRecorder) Notices() []session.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Notice(nil), r.notices...)
}

// Kinds returns the recorded notice kinds in order.
func (r *NoticeRecorder) Kinds() []session.NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]session.NoticeKind, len(r.notices))
	for i, n := range r.notices {
		kinds[i] = n.Kind
	}
	return kinds
}

// ServiceFactory builds RaidServices on a shared fake clock and deterministic
// identifiers.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Notices     *NoticeRecorder
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory starts the clock at ReferenceTime.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Notices:     &NoticeRecorder{},
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if clock != nil {
			factory.Clock = clock
		}
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if generator != nil {
			factory.IDGenerator = generator
		}
	}
}

// RaidServiceDeps captures the optional collaborators of a RaidService. Nil
// repositories leave history unpersisted; nil Rules uses Rules(tb).
type RaidServiceDeps struct {
	Rules    *rules.Rules
	Wipes    application.WipeRepository
	RuleSets application.RuleSetRepository
	LastWipe time.Time
	Location *time.Location
	Logger   *slog.Logger
}

// NewRaidService builds a service wired to the factory clock, ids and
// notice recorder.
func (f *ServiceFactory) NewRaidService(tb testing.TB, deps RaidServiceDeps) *application.RaidService {
	tb.Helper()
	if deps.Rules == nil {
		deps.Rules = Rules(tb)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	service, err := application.NewRaidService(application.RaidServiceOptions{
		Rules:       deps.Rules,
		RulesID:     "fixture",
		Wipes:       deps.Wipes,
		RuleSets:    deps.RuleSets,
		Notifier:    f.Notices,
		Location:    deps.Location,
		LastWipe:    deps.LastWipe,
		Now:         f.Clock.NowFunc(),
		IDGenerator: f.IDGenerator.NextFunc(),
		Logger:      deps.Logger,
	})
	if err != nil {
		tb.Fatalf("build raid service: %v", err)
	}
	return service
}
