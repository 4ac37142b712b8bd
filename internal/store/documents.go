package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const contentTypeJSON = "application/json"

// Options tune a Store. Zero values fall back to defaults.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
	NewID  func() string
}

// Store implements Gateway on top of a Blobs backend.
type Store struct {
	blobs  Blobs
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

var _ Gateway = (*Store)(nil)

func New(blobs Blobs, opts Options) *Store {
	s := &Store{
		blobs:  blobs,
		logger: opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Store) SaveAnalysis(ctx context.Context, userID string, result any, resumeID string) (*Record, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis result: %w", err)
	}

	rec := Record{
		ID:         s.newID(),
		ResumeID:   strings.TrimSpace(resumeID),
		UserID:     userID,
		AnalyzedAt: s.now().UTC(),
		Result:     raw,
	}

	key, err := AnalysisKey(userID, rec.ID)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis record: %w", err)
	}

	if err := s.blobs.Put(ctx, key, body, contentTypeJSON); err != nil {
		return nil, fmt.Errorf("write analysis record %s: %w", rec.ID, err)
	}

	s.logger.Debug("analysis record saved",
		zap.String("user_id", userID),
		zap.String("analysis_id", rec.ID),
		zap.String("resume_id", rec.ResumeID),
	)

	return &rec, nil
}

func (s *Store) ListAnalyses(ctx context.Context, userID string) ([]Record, error) {
	prefix, err := AnalysesPrefix(userID)
	if err != nil {
		return nil, err
	}

	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, jsonExt) {
			continue
		}

		rec, err := s.readRecord(ctx, key)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.logger.Warn("skipping unreadable analysis record", zap.String("key", key), zap.Error(err))
			continue
		}
		records = append(records, *rec)
	}

	SortNewestFirst(records)
	return records, nil
}

func (s *Store) GetAnalysis(ctx context.Context, userID, id string) (*Record, error) {
	key, err := AnalysisKey(userID, id)
	if err != nil {
		return nil, err
	}
	return s.readRecord(ctx, key)
}

func (s *Store) SaveResume(ctx context.Context, userID string, meta ResumeMeta) (*ResumeMeta, error) {
	if strings.TrimSpace(meta.ID) == "" {
		meta.ID = s.newID()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now().UTC()
	}
	if meta.Source == "" {
		meta.Source = SourceUpload
	}

	key, err := ResumeKey(userID, meta.ID)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resume metadata: %w", err)
	}

	if err := s.blobs.Put(ctx, key, body, contentTypeJSON); err != nil {
		return nil, fmt.Errorf("write resume metadata %s: %w", meta.ID, err)
	}

	return &meta, nil
}

func (s *Store) SaveResumeFile(ctx context.Context, userID, resumeID, filename string, data []byte) (string, error) {
	key, err := ResumeFileKey(userID, resumeID, filename)
	if err != nil {
		return "", err
	}

	if err := s.blobs.Put(ctx, key, data, ""); err != nil {
		return "", fmt.Errorf("write resume file %s: %w", resumeID, err)
	}
	return key, nil
}

func (s *Store) readRecord(ctx context.Context, key string) (*Record, error) {
	body, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &rec, nil
}

// SortNewestFirst orders records by AnalyzedAt descending. Ties are broken
// by id to keep the order stable across backends.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].AnalyzedAt.Equal(records[j].AnalyzedAt) {
			return records[i].AnalyzedAt.After(records[j].AnalyzedAt)
		}
		return records[i].ID > records[j].ID
	})
}
