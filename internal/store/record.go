package store

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	keyID         = "id"
	keyResumeID   = "resumeId"
	keyUserID     = "userId"
	keyAnalyzedAt = "analyzedAt"
)

// Record is a persisted analysis. It is encoded as one flat JSON document:
// the result fields next to id, resumeId, userId and analyzedAt.
type Record struct {
	ID         string
	ResumeID   string
	UserID     string
	AnalyzedAt time.Time
	// Result holds the analysis fields. Decoded records carry them as raw JSON.
	Result json.RawMessage
}

func (r Record) MarshalJSON() ([]byte, error) {
	doc := map[string]any{}
	if len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, &doc); err != nil {
			return nil, fmt.Errorf("record result must be a JSON object: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	doc[keyID] = r.ID
	doc[keyResumeID] = r.ResumeID
	doc[keyUserID] = r.UserID
	doc[keyAnalyzedAt] = r.AnalyzedAt.UTC().Format(time.RFC3339Nano)

	return json.Marshal(doc)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	var rec Record
	for key, target := range map[string]*string{keyID: &rec.ID, keyResumeID: &rec.ResumeID, keyUserID: &rec.UserID} {
		if raw, ok := doc[key]; ok {
			if err := json.Unmarshal(raw, target); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		}
		delete(doc, key)
	}

	if raw, ok := doc[keyAnalyzedAt]; ok {
		var ts string
		if err := json.Unmarshal(raw, &ts); err != nil {
			return fmt.Errorf("decode %s: %w", keyAnalyzedAt, err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("decode %s: %w", keyAnalyzedAt, err)
		}
		rec.AnalyzedAt = parsed
	}
	delete(doc, keyAnalyzedAt)

	result, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	rec.Result = result

	*r = rec
	return nil
}

// DecodeResult unmarshals the stored analysis fields into v.
func (r Record) DecodeResult(v any) error {
	if len(r.Result) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(r.Result, v)
}

// ResumeSource tells how a résumé entered the system.
type ResumeSource string

const (
	SourceUpload ResumeSource = "upload"
	SourcePaste  ResumeSource = "paste"
)

// ResumeMeta describes a submitted résumé.
type ResumeMeta struct {
	ID        string       `json:"id"`
	Filename  string       `json:"fileName,omitempty"`
	MIMEType  string       `json:"type,omitempty"`
	Size      int64        `json:"size"`
	Source    ResumeSource `json:"source"`
	Path      string       `json:"path,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
