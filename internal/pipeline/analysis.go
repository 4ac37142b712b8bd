package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/skillsynx/internal/analysis"
	"github.com/spigell/skillsynx/internal/extract"
	"github.com/spigell/skillsynx/internal/logger"
	"github.com/spigell/skillsynx/internal/oracle"
	"github.com/spigell/skillsynx/internal/store"
	"github.com/spigell/skillsynx/internal/utils"
	"go.uber.org/zap"
)

// TextExtractor turns a document into text.
type TextExtractor interface {
	Extract(ctx context.Context, doc extract.Document) (string, error)
}

// AnalysisInput carries either a document or pasted text. The document wins
// when both are set.
type AnalysisInput struct {
	Document   *extract.Document
	Text       string
	TargetRole string
	// ResumeID links the analysis to previously saved résumé metadata.
	ResumeID string
}

// AnalysisRun is the outcome of one analysis invocation.
type AnalysisRun struct {
	ID          string
	UserID      string
	State       State
	Transitions []Transition
	ResumeText  string
	Result      *analysis.Result
	Resume      *store.ResumeMeta
	Record      *store.Record
	Err         error
	// PersistErr is set when the result could not be stored. The run still
	// succeeds.
	PersistErr error
}

// Analyzer runs résumé analyses. It is safe for concurrent use.
type Analyzer struct {
	extractor TextExtractor
	oracle    oracle.Client
	options
}

func NewAnalyzer(extractor TextExtractor, client oracle.Client, opts ...Option) *Analyzer {
	return &Analyzer{
		extractor: extractor,
		oracle:    client,
		options:   newOptions(opts),
	}
}

// Run drives one analysis from idle to a terminal state. The returned run is
// never nil; the error equals run.Err.
func (a *Analyzer) Run(ctx context.Context, session Session, in AnalysisInput) (*AnalysisRun, error) {
	run := &AnalysisRun{ID: a.newID(), UserID: session.UserID, State: StateIdle}
	log := logger.WithRun(a.logger, PipelineAnalysis, session.UserID, run.ID)
	if a.oracle != nil {
		log = logger.WithCommonFields(log, a.oracle.Name(), a.oracle.Model())
	}

	m := &machine{
		pipeline:  PipelineAnalysis,
		runID:     run.ID,
		userID:    session.UserID,
		state:     StateIdle,
		observers: a.observers,
		logger:    log,
		now:       a.now,
	}
	defer func() {
		run.State = m.state
		run.Transitions = m.history
	}()

	fail := func(err error) (*AnalysisRun, error) {
		run.Err = err
		m.advance(ctx, StateFailed, err)
		return run, err
	}

	hasDocument := in.Document != nil && len(in.Document.Data) > 0
	if !hasDocument && strings.TrimSpace(in.Text) == "" {
		return fail(ErrEmptyInput)
	}

	text := in.Text
	if hasDocument {
		m.advance(ctx, StateExtracting, nil)

		if a.extractor == nil {
			return fail(errors.New("text extractor is not configured"))
		}

		extracted, err := a.extractor.Extract(ctx, *in.Document)
		if err != nil {
			return fail(err)
		}
		text = extracted
	}
	run.ResumeText = text

	m.advance(ctx, StateAnalyzing, nil)

	result, err := a.analyze(ctx, log, session, analysis.NewRequest(text, in.TargetRole))
	if err != nil {
		return fail(err)
	}
	run.Result = result

	a.persist(ctx, log, session, in, run)

	m.advance(ctx, StateSucceeded, nil)
	return run, nil
}

func (a *Analyzer) analyze(ctx context.Context, log *zap.Logger, session Session, req analysis.Request) (*analysis.Result, error) {
	prompt := analysis.BuildAnalysisPrompt(req)

	raw, err := complete(ctx, log, a.oracle, session, prompt, a.maxLogLen)
	if err != nil {
		return nil, err
	}

	return analysis.ParseResult(raw)
}

func (a *Analyzer) persist(ctx context.Context, log *zap.Logger, session Session, in AnalysisInput, run *AnalysisRun) {
	if a.store == nil {
		return
	}
	if strings.TrimSpace(session.UserID) == "" {
		log.Debug("anonymous session, analysis is not persisted")
		return
	}

	resumeID := strings.TrimSpace(in.ResumeID)
	if resumeID == "" {
		meta, err := a.saveResume(ctx, session.UserID, in, run.ResumeText)
		if err != nil {
			run.PersistErr = err
			log.Warn("failed to save resume metadata", zap.Error(err))
			return
		}
		run.Resume = meta
		resumeID = meta.ID
	}

	record, err := a.store.SaveAnalysis(ctx, session.UserID, run.Result, resumeID)
	if err != nil {
		run.PersistErr = err
		log.Warn("failed to save analysis", zap.Error(err))
		return
	}
	run.Record = record

	log.Info("analysis saved",
		zap.String("analysis_id", record.ID),
		zap.String("resume_id", resumeID),
	)
}

func (a *Analyzer) saveResume(ctx context.Context, userID string, in AnalysisInput, text string) (*store.ResumeMeta, error) {
	meta := store.ResumeMeta{
		ID:     a.newID(),
		Source: store.SourcePaste,
		Size:   int64(len(text)),
	}

	if doc := in.Document; doc != nil && len(doc.Data) > 0 {
		meta.Source = store.SourceUpload
		meta.Filename = doc.Filename
		meta.MIMEType = doc.MIMEType
		meta.Size = int64(len(doc.Data))

		key, err := a.store.SaveResumeFile(ctx, userID, meta.ID, doc.Filename, doc.Data)
		if err != nil {
			return nil, err
		}
		meta.Path = key
	}

	return a.store.SaveResume(ctx, userID, meta)
}

// complete sends the prompt and returns the sanitized answer. Any oracle
// failure is reported as oracle.ErrUnavailable.
func complete(ctx context.Context, log *zap.Logger, client oracle.Client, session Session, prompt string, maxLogLen int) (string, error) {
	if client == nil {
		return "", fmt.Errorf("%w: oracle client is not configured", oracle.ErrUnavailable)
	}

	log.Debug("oracle request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, maxLogLen)),
	)

	env, err := client.Complete(oracle.WithSessionToken(ctx, session.Token), prompt)
	if err != nil {
		if !errors.Is(err, oracle.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", oracle.ErrUnavailable, err)
		}
		return "", err
	}

	raw := oracle.Sanitize(env)
	log.Debug("oracle response",
		zap.String("envelope", env.Kind().String()),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, maxLogLen)),
	)

	return raw, nil
}
