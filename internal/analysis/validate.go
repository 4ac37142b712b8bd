package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrMalformedResponse is returned when the oracle answer is not JSON or does
// not have the expected top level shape. The validator never guesses.
var ErrMalformedResponse = errors.New("malformed oracle response")

const linkedInSearchURL = "https://www.linkedin.com/jobs/search/?keywords="

// ParseResult validates a sanitized analysis answer. Scores are rounded and
// clamped to 0..100, absent scores stay nil and lists are never nil.
func ParseResult(raw string) (*Result, error) {
	data, err := decode(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", ErrMalformedResponse, jsonKind(data))
	}

	return &Result{
		ATSScore:             coerceScore(obj[FieldATSScore]),
		SkillMatchPercentage: coerceScore(obj[FieldSkillMatchPercentage]),
		Summary:              coerceString(obj[FieldSummary]),
		Strengths:            coerceStringList(obj[FieldStrengths]),
		Weaknesses:           coerceStringList(obj[FieldWeaknesses]),
		MissingSkills:        coerceStringList(obj[FieldMissingSkills]),
		JobFit:               ParseJobFit(coerceString(obj[FieldJobFit])),
		Suggestions:          coerceStringList(obj[FieldSuggestions]),
	}, nil
}

// listingWire mirrors a listing as the oracle sends it. Loosely typed fields
// are coerced separately.
type listingWire struct {
	ID           any    `mapstructure:"id"`
	Title        string `mapstructure:"title"`
	Company      string `mapstructure:"company"`
	Location     string `mapstructure:"location"`
	Type         string `mapstructure:"type"`
	SalaryRange  string `mapstructure:"salary_range"`
	MatchScore   any    `mapstructure:"match_score"`
	MatchReason  string `mapstructure:"match_reason"`
	Requirements any    `mapstructure:"requirements"`
	PostedDate   string `mapstructure:"posted_date"`
	ApplyLink    string `mapstructure:"apply_link"`
	Link         string `mapstructure:"link"`
}

// ParseJobs validates a sanitized job matching answer. Both {"jobs": [...]}
// and a bare array are accepted; an object without jobs is an empty list. Entries that cannot be decoded or have no
// title are dropped, so the result may be shorter than requested.
func ParseJobs(raw string) ([]JobListing, error) {
	data, err := decode(raw)
	if err != nil {
		return nil, err
	}

	var items []any
	switch val := data.(type) {
	case []any:
		items = val
	case map[string]any:
		jobs := val[FieldJobs]
		if jobs == nil {
			return []JobListing{}, nil
		}
		var ok bool
		if items, ok = jobs.([]any); !ok {
			return nil, fmt.Errorf("%w: %q is %s, not an array", ErrMalformedResponse, FieldJobs, jsonKind(jobs))
		}
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array, got %s", ErrMalformedResponse, jsonKind(data))
	}

	listings := make([]JobListing, 0, len(items))
	for _, item := range items {
		listing, ok := decodeListing(item)
		if !ok {
			continue
		}
		if listing.ID == "" {
			listing.ID = strconv.Itoa(len(listings) + 1)
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

func decodeListing(item any) (JobListing, bool) {
	if _, ok := item.(map[string]any); !ok {
		return JobListing{}, false
	}

	var wire listingWire
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &wire,
	})
	if err != nil {
		return JobListing{}, false
	}
	if err := decoder.Decode(item); err != nil {
		return JobListing{}, false
	}

	listing := JobListing{
		ID:           coerceString(wire.ID),
		Title:        strings.TrimSpace(wire.Title),
		Company:      strings.TrimSpace(wire.Company),
		Location:     strings.TrimSpace(wire.Location),
		Type:         strings.TrimSpace(wire.Type),
		SalaryRange:  strings.TrimSpace(wire.SalaryRange),
		MatchScore:   coerceScore(wire.MatchScore),
		MatchReason:  strings.TrimSpace(wire.MatchReason),
		Requirements: coerceStringList(wire.Requirements),
		PostedDate:   strings.TrimSpace(wire.PostedDate),
		ApplyLink:    strings.TrimSpace(firstNonEmpty(wire.ApplyLink, wire.Link)),
	}
	if listing.Title == "" {
		return JobListing{}, false
	}

	if !isWebURL(listing.ApplyLink) {
		listing.ApplyLink = SearchURL(listing.Title, listing.Company)
	}

	return listing, true
}

// SearchURL builds a LinkedIn job search link for the title and company.
func SearchURL(title, company string) string {
	keywords := strings.TrimSpace(strings.Join([]string{strings.TrimSpace(title), strings.TrimSpace(company)}, " "))
	return linkedInSearchURL + url.QueryEscape(keywords)
}

func isWebURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func decode(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return data, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func coerceScore(v any) *int {
	f := coerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	score := int(math.Round(math.Max(0, math.Min(100, f))))
	return &score
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// coerceStringList accepts a list of anything or a single string. Elements are
// trimmed and empty ones dropped.
func coerceStringList(v any) []string {
	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	case string:
		items = []any{val}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
