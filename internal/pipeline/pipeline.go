// Package pipeline orchestrates résumé analysis and job matching runs.
// Every invocation is an independent state machine; nothing is shared
// between runs except the immutable inputs they are given.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/skillsynx/internal/filtering"
	"github.com/spigell/skillsynx/internal/store"
	"go.uber.org/zap"
)

const (
	PipelineAnalysis = "analysis"
	PipelineMatching = "matching"

	defaultMaxLogLength = 200
)

// ErrEmptyInput is returned when neither a document nor text was supplied.
var ErrEmptyInput = errors.New("no resume document or text supplied")

// State of a pipeline run.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateAnalyzing  State = "analyzing"
	StateMatching   State = "matching"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions can follow.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:       {StateExtracting, StateAnalyzing, StateMatching, StateFailed},
	StateExtracting: {StateAnalyzing, StateFailed},
	StateAnalyzing:  {StateSucceeded, StateFailed},
	StateMatching:   {StateSucceeded, StateFailed},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session identifies the caller of one invocation. It is passed explicitly
// instead of being looked up from ambient state.
type Session struct {
	UserID string
	Token  string
}

// Transition is one state change of a run.
type Transition struct {
	Pipeline string
	RunID    string
	UserID   string
	From     State
	To       State
	At       time.Time
	Err      error
}

// Observer is notified about every transition. Implementations must not block
// for long; they run on the pipeline goroutine.
type Observer interface {
	OnTransition(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, t Transition)

func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) {
	f(ctx, t)
}

type options struct {
	store     store.Gateway
	observers []Observer
	logger    *zap.Logger
	maxLogLen int
	filters   func() []filtering.Filter
	filterCfg filtering.Config
	now       func() time.Time
	newID     func() string
}

// Option configures an Analyzer or a Matcher.
type Option func(*options)

// WithStore enables persistence of successful analyses.
func WithStore(g store.Gateway) Option {
	return func(o *options) { o.store = g }
}

func WithObservers(observers ...Observer) Option {
	return func(o *options) { o.observers = append(o.observers, observers...) }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxLogLength bounds prompt and response previews in debug logs.
func WithMaxLogLength(n int) Option {
	return func(o *options) { o.maxLogLen = n }
}

// WithFilters sets the listing post-filters of a Matcher. steps is called
// once per run because filters keep per run state.
func WithFilters(cfg filtering.Config, steps func() []filtering.Filter) Option {
	return func(o *options) {
		o.filterCfg = cfg
		if steps != nil {
			o.filters = steps
		}
	}
}

func withClock(now func() time.Time, newID func() string) Option {
	return func(o *options) {
		o.now = now
		o.newID = newID
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		maxLogLen: defaultMaxLogLength,
		filters:   filtering.Default,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.maxLogLen <= 0 {
		o.maxLogLen = defaultMaxLogLength
	}
	return o
}

// machine tracks the state of one run and fans transitions out.
type machine struct {
	pipeline  string
	runID     string
	userID    string
	state     State
	history   []Transition
	observers []Observer
	logger    *zap.Logger
	now       func() time.Time
}

func (m *machine) advance(ctx context.Context, to State, err error) {
	if !canTransition(m.state, to) {
		m.logger.DPanic("invalid pipeline transition",
			zap.String("from", string(m.state)),
			zap.String("to", string(to)),
		)
	}

	t := Transition{
		Pipeline: m.pipeline,
		RunID:    m.runID,
		UserID:   m.userID,
		From:     m.state,
		To:       to,
		At:       m.now().UTC(),
		Err:      err,
	}
	m.state = to
	m.history = append(m.history, t)

	fields := []zap.Field{
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
	}
	if err != nil {
		m.logger.Warn("pipeline transition", append(fields, zap.Error(err))...)
	} else {
		m.logger.Debug("pipeline transition", fields...)
	}

	for _, observer := range m.observers {
		observer.OnTransition(ctx, t)
	}
}
