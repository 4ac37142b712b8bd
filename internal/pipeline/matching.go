package pipeline

import (
	"context"
	"fmt"

	"github.com/spigell/skillsynx/internal/analysis"
	"github.com/spigell/skillsynx/internal/filtering"
	"github.com/spigell/skillsynx/internal/logger"
	"github.com/spigell/skillsynx/internal/oracle"
	"go.uber.org/zap"
)

// MatchInput seeds a job search. Analysis is optional; without it the search
// runs in degraded mode on the preferences and generic defaults.
type MatchInput struct {
	Analysis    *analysis.Result
	Preferences analysis.Preferences
	ResumeText  string
	// Count is the number of listings requested, analysis.DefaultJobCount when zero.
	Count int
}

// MatchRun is the outcome of one matching invocation.
type MatchRun struct {
	ID          string
	UserID      string
	State       State
	Transitions []Transition
	Request     analysis.MatchRequest
	Jobs        []analysis.JobListing
	Err         error
}

// Matcher runs job searches. It is safe for concurrent use.
type Matcher struct {
	oracle oracle.Client
	options
}

func NewMatcher(client oracle.Client, opts ...Option) *Matcher {
	return &Matcher{
		oracle:  client,
		options: newOptions(opts),
	}
}

// Run drives one search from idle to a terminal state. The returned run is
// never nil; the error equals run.Err. Jobs is never nil on success.
func (mt *Matcher) Run(ctx context.Context, session Session, in MatchInput) (*MatchRun, error) {
	run := &MatchRun{ID: mt.newID(), UserID: session.UserID, State: StateIdle}
	log := logger.WithRun(mt.logger, PipelineMatching, session.UserID, run.ID)
	if mt.oracle != nil {
		log = logger.WithCommonFields(log, mt.oracle.Name(), mt.oracle.Model())
	}

	m := &machine{
		pipeline:  PipelineMatching,
		runID:     run.ID,
		userID:    session.UserID,
		state:     StateIdle,
		observers: mt.observers,
		logger:    log,
		now:       mt.now,
	}
	defer func() {
		run.State = m.state
		run.Transitions = m.history
	}()

	m.advance(ctx, StateMatching, nil)

	run.Request = analysis.NewMatchRequest(in.Analysis, in.Preferences, in.ResumeText, in.Count)
	if in.Analysis == nil {
		log.Info("no analysis supplied, matching on preferences only",
			zap.String("target_role", run.Request.TargetRole),
		)
	}

	jobs, err := mt.match(ctx, log, session, run.Request)
	if err != nil {
		run.Err = err
		m.advance(ctx, StateFailed, err)
		return run, err
	}
	run.Jobs = jobs

	m.advance(ctx, StateSucceeded, nil)
	return run, nil
}

func (mt *Matcher) match(ctx context.Context, log *zap.Logger, session Session, req analysis.MatchRequest) ([]analysis.JobListing, error) {
	raw, err := complete(ctx, log, mt.oracle, session, analysis.BuildMatchPrompt(req), mt.maxLogLen)
	if err != nil {
		return nil, err
	}

	parsed, err := analysis.ParseJobs(raw)
	if err != nil {
		return nil, err
	}

	cfg := mt.filterCfg
	if cfg.Limit == 0 || cfg.Limit > req.Count {
		cfg.Limit = req.Count
	}

	steps := mt.filters()
	for _, name := range cfg.Disabled {
		if !filtering.DisableByName(steps, name, "disabled by configuration") {
			log.Warn("unknown filter cannot be disabled", zap.String("name", name))
		}
	}

	filtered, err := filtering.Run(ctx, &cfg, filtering.Deps{Logger: log}, steps, filtering.NewListings(parsed))
	if err != nil {
		return nil, fmt.Errorf("filter listings: %w", err)
	}
	log.Debug("filters applied", zap.Any("filters", filtering.Describe(steps)))

	return filtered.Items, nil
}
