package analysis

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spigell/skillsynx/internal/oracle"
)

func intPtr(v int) *int { return &v }

func TestParseResultClampsScores(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want *int
	}{
		{name: "above range", in: `{"ats_score": 140}`, want: intPtr(100)},
		{name: "below range", in: `{"ats_score": -5}`, want: intPtr(0)},
		{name: "in range", in: `{"ats_score": 72}`, want: intPtr(72)},
		{name: "fraction rounds", in: `{"ats_score": 72.6}`, want: intPtr(73)},
		{name: "numeric string", in: `{"ats_score": " 88 "}`, want: intPtr(88)},
		{name: "percent string", in: `{"ats_score": "64%"}`, want: intPtr(64)},
		{name: "absent", in: `{}`, want: nil},
		{name: "null", in: `{"ats_score": null}`, want: nil},
		{name: "garbage", in: `{"ats_score": "high"}`, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := ParseResult(tc.in)
			if err != nil {
				t.Fatalf("ParseResult() error = %v", err)
			}
			if !reflect.DeepEqual(res.ATSScore, tc.want) {
				t.Fatalf("ATSScore = %v, want %v", deref(res.ATSScore), deref(tc.want))
			}
		})
	}
}

func TestParseResultArraysNeverNil(t *testing.T) {
	t.Parallel()

	res, err := ParseResult(`{"summary": "  Solid engineer ", "strengths": null, "weaknesses": "Sparse metrics", "suggestions": [" Add numbers ", "", 42]}`)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}

	if res.Strengths == nil || res.Weaknesses == nil || res.MissingSkills == nil || res.Suggestions == nil {
		t.Fatalf("nil list in %+v", res)
	}
	if len(res.Strengths) != 0 || len(res.MissingSkills) != 0 {
		t.Fatalf("expected empty lists, got %+v", res)
	}
	if !reflect.DeepEqual(res.Weaknesses, []string{"Sparse metrics"}) {
		t.Fatalf("Weaknesses = %v", res.Weaknesses)
	}
	if !reflect.DeepEqual(res.Suggestions, []string{"Add numbers", "42"}) {
		t.Fatalf("Suggestions = %v", res.Suggestions)
	}
	if res.Summary != "Solid engineer" {
		t.Fatalf("Summary = %q", res.Summary)
	}

	encoded, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(encoded), "null") {
		t.Fatalf("encoded result contains null: %s", encoded)
	}
}

func TestParseResultJobFit(t *testing.T) {
	t.Parallel()

	cases := map[string]JobFit{
		`{"job_fit": "high"}`:          FitHigh,
		`{"job_fit": " MEDIUM "}`:      FitMedium,
		`{"job_fit": "Low"}`:           FitLow,
		`{"job_fit": "High/Medium"}`:   "",
		`{"job_fit": 3}`:               "",
		`{"skill_match_percentage":1}`: "",
	}
	for in, want := range cases {
		res, err := ParseResult(in)
		if err != nil {
			t.Fatalf("ParseResult(%s) error = %v", in, err)
		}
		if res.JobFit != want {
			t.Fatalf("ParseResult(%s).JobFit = %q, want %q", in, res.JobFit, want)
		}
	}
}

func TestParseResultIsIdempotent(t *testing.T) {
	t.Parallel()

	valid := `{
		"ats_score": 81,
		"skill_match_percentage": 67,
		"summary": "Frontend developer with six years of React.",
		"strengths": ["React", "TypeScript"],
		"weaknesses": ["No testing section"],
		"missing_skills": ["GraphQL"],
		"job_fit": "High",
		"suggestions": ["Quantify impact"]
	}`

	first, err := ParseResult(valid)
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}

	encoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := ParseResult(string(encoded))
	if err != nil {
		t.Fatalf("ParseResult() second pass error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("validation is not idempotent:\n%+v\n%+v", first, second)
	}

	var direct Result
	if err := json.Unmarshal([]byte(valid), &direct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(first, &direct) {
		t.Fatalf("valid payload changed by validation:\n%+v\n%+v", first, &direct)
	}
}

func TestParseResultMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "I cannot process this", `["a"]`, `"text"`, `{"ats_score": 1`} {
		if _, err := ParseResult(in); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("ParseResult(%q) error = %v, want ErrMalformedResponse", in, err)
		}
	}
}

func TestCitedAnalysisParses(t *testing.T) {
	t.Parallel()

	env := oracle.Raw("Analysis (see [1]):\n{\"ats_score\": 80, \"summary\": \"Go engineer\"}")

	res, err := ParseResult(oracle.Sanitize(env))
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if res.ATSScore == nil || *res.ATSScore != 80 {
		t.Fatalf("ATSScore = %v, want 80", deref(res.ATSScore))
	}
}

// Fenced answer with an out of range score, as produced for a frontend résumé.
func TestFencedAnalysisEndToEnd(t *testing.T) {
	t.Parallel()

	env := oracle.Message("```json\n{\"ats_score\": 140, \"skill_match_percentage\": 90, \"summary\": \"Senior Frontend Developer\", \"job_fit\": \"High\"}\n```")

	res, err := ParseResult(oracle.Sanitize(env))
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if res.ATSScore == nil || *res.ATSScore != 100 {
		t.Fatalf("ATSScore = %v, want 100", deref(res.ATSScore))
	}
	for name, list := range map[string][]string{
		"strengths":      res.Strengths,
		"weaknesses":     res.Weaknesses,
		"missing_skills": res.MissingSkills,
		"suggestions":    res.Suggestions,
	} {
		if list == nil {
			t.Fatalf("%s is nil", name)
		}
	}
}

func TestParseJobs(t *testing.T) {
	t.Parallel()

	raw := `{"jobs": [
		{"id": 1, "title": "Data Scientist", "company": "Acme", "match_score": "97.4", "requirements": ["Python", " SQL "], "apply_link": "https://www.indeed.com/jobs?q=data+scientist"},
		{"title": "ML Engineer", "company": "Globex", "match_score": 250, "apply_link": "not a url", "requirements": "PyTorch"},
		{"title": {"nested": true}, "company": "Broken"},
		"just a string",
		{"company": "No Title Inc"},
		{"title": "Analyst", "company": "Initech", "link": "http://example.com/jobs/1"}
	]}`

	jobs, err := ParseJobs(raw)
	if err != nil {
		t.Fatalf("ParseJobs() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 listings, got %d: %+v", len(jobs), jobs)
	}

	first := jobs[0]
	if first.ID != "1" || first.MatchScore == nil || *first.MatchScore != 97 {
		t.Fatalf("unexpected first listing %+v", first)
	}
	if !reflect.DeepEqual(first.Requirements, []string{"Python", "SQL"}) {
		t.Fatalf("Requirements = %v", first.Requirements)
	}
	if first.ApplyLink != "https://www.indeed.com/jobs?q=data+scientist" {
		t.Fatalf("valid link rewritten: %q", first.ApplyLink)
	}

	second := jobs[1]
	if second.ID != "2" || *second.MatchScore != 100 {
		t.Fatalf("unexpected second listing %+v", second)
	}
	if second.ApplyLink != "https://www.linkedin.com/jobs/search/?keywords=ML+Engineer+Globex" {
		t.Fatalf("ApplyLink = %q", second.ApplyLink)
	}
	if !reflect.DeepEqual(second.Requirements, []string{"PyTorch"}) {
		t.Fatalf("Requirements = %v", second.Requirements)
	}

	if jobs[2].ApplyLink != "http://example.com/jobs/1" {
		t.Fatalf("link alias ignored: %+v", jobs[2])
	}
}

func TestParseJobsShapes(t *testing.T) {
	t.Parallel()

	bare, err := ParseJobs(`[{"title": "Dev"}]`)
	if err != nil || len(bare) != 1 {
		t.Fatalf("bare array: %v, %v", bare, err)
	}
	if bare[0].Requirements == nil {
		t.Fatal("requirements must not be nil")
	}

	for _, in := range []string{`{"jobs": null}`, `{}`, `{"note": "no openings matched"}`, `{"listings": []}`} {
		empty, err := ParseJobs(in)
		if err != nil || empty == nil || len(empty) != 0 {
			t.Fatalf("ParseJobs(%q) = %v, %v, want empty list", in, empty, err)
		}
	}

	for _, in := range []string{`{"jobs": "none"}`, `42`, `Sorry, no jobs today`} {
		if _, err := ParseJobs(in); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("ParseJobs(%q) error = %v, want ErrMalformedResponse", in, err)
		}
	}
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
