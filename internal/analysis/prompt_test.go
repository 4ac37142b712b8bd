package analysis

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewRequestTruncatesAndDefaults(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", MaxResumeRunes+50)
	req := NewRequest(long, "  ")

	if got := utf8.RuneCountInString(req.ResumeText); got != MaxResumeRunes {
		t.Fatalf("resume runes = %d, want %d", got, MaxResumeRunes)
	}
	if !strings.HasPrefix(long, req.ResumeText) {
		t.Fatal("truncation must keep the prefix")
	}
	if req.TargetRole != DefaultTargetRole {
		t.Fatalf("TargetRole = %q", req.TargetRole)
	}
	if again := NewRequest(long, ""); again != req {
		t.Fatal("truncation is not deterministic")
	}

	short := NewRequest("short text", "Frontend Developer")
	if short.ResumeText != "short text" || short.TargetRole != "Frontend Developer" {
		t.Fatalf("unexpected request %+v", short)
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildAnalysisPrompt(NewRequest("Senior Frontend Developer, 6 years React {{SCHEMA}}", "Frontend Developer"))

	for _, want := range []string{
		"ATS",
		`"Frontend Developer"`,
		"Senior Frontend Developer, 6 years React {{SCHEMA}}",
		"code fences",
		`"` + FieldATSScore + `"`,
		`"` + FieldSkillMatchPercentage + `"`,
		`"` + FieldMissingSkills + `"`,
		`"` + FieldJobFit + `"`,
		`"` + FieldSuggestions + `"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{{TARGET_ROLE}}") || strings.Contains(prompt, "{{RESUME_TEXT}}") {
		t.Fatal("unreplaced placeholder in prompt")
	}
}

func TestNewMatchRequest(t *testing.T) {
	t.Parallel()

	degraded := NewMatchRequest(nil, Preferences{TargetRole: "Data Scientist"}, "", 0)
	if degraded.TargetRole != "Data Scientist" ||
		degraded.Location != DefaultLocation ||
		degraded.Salary != DefaultSalary ||
		degraded.ResumeSummary != DefaultResumeSummary ||
		degraded.Count != DefaultJobCount ||
		degraded.KeySkills == nil {
		t.Fatalf("unexpected degraded request %+v", degraded)
	}

	textOnly := NewMatchRequest(nil, Preferences{}, strings.Repeat("a", SummaryFallbackRunes+10), 3)
	if utf8.RuneCountInString(textOnly.ResumeSummary) != SummaryFallbackRunes || textOnly.Count != 3 {
		t.Fatalf("unexpected summary fallback %+v", textOnly)
	}
	if textOnly.TargetRole != DefaultTargetRole {
		t.Fatalf("TargetRole = %q", textOnly.TargetRole)
	}

	full := NewMatchRequest(&Result{Summary: "Frontend lead", Strengths: []string{"React", "CSS"}},
		Preferences{TargetRole: "Frontend Developer", Location: "Berlin", Salary: "€90k"}, "ignored", 6)
	if full.ResumeSummary != "Frontend lead" || strings.Join(full.KeySkills, ",") != "React,CSS" || full.Location != "Berlin" {
		t.Fatalf("unexpected full request %+v", full)
	}

	for _, count := range []int{-3, 0, 1, MaxJobCount, MaxJobCount + 1, 100000} {
		got := NewMatchRequest(nil, Preferences{}, "", count).Count
		if got < 1 || got > MaxJobCount {
			t.Fatalf("NewMatchRequest(count=%d).Count = %d, want 1..%d", count, got, MaxJobCount)
		}
	}
	if got := NewMatchRequest(nil, Preferences{}, "", 100000).Count; got != MaxJobCount {
		t.Fatalf("oversized count = %d, want %d", got, MaxJobCount)
	}
}

func TestBuildMatchPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildMatchPrompt(NewMatchRequest(nil, Preferences{TargetRole: "Data Scientist"}, "", 0))

	for _, want := range []string{
		"Data Scientist",
		DefaultLocation,
		DefaultSalary,
		DefaultKeySkills,
		DefaultResumeSummary,
		"identify 6 ",
		"linkedin.com/jobs/search",
		"indeed.com",
		`"` + FieldJobs + `"`,
		`"` + FieldApplyLink + `"`,
		`"` + FieldMatchScore + `"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("unreplaced placeholder in prompt:\n%s", prompt)
	}
}
