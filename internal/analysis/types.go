// Package analysis builds oracle prompts for résumé analysis and job matching
// and turns the oracle's answers back into validated values.
package analysis

import (
	"strings"

	"github.com/spigell/skillsynx/internal/utils"
)

const (
	// MaxResumeRunes bounds the résumé text embedded into a prompt.
	MaxResumeRunes = 4000
	// SummaryFallbackRunes bounds the résumé prefix used when no analysis
	// summary is available for matching.
	SummaryFallbackRunes = 500
	// DefaultJobCount is the number of listings requested from the oracle.
	DefaultJobCount = 6
	// MaxJobCount caps the number of listings a caller may request.
	MaxJobCount = 20

	DefaultTargetRole    = "General Role"
	DefaultLocation      = "Flexible/Remote"
	DefaultSalary        = "Market Rate"
	DefaultKeySkills     = "General Professional Skills"
	DefaultResumeSummary = "Experienced Professional"
)

// JobFit is the oracle's coarse verdict on how the candidate fits the role.
type JobFit string

const (
	FitHigh   JobFit = "High"
	FitMedium JobFit = "Medium"
	FitLow    JobFit = "Low"
)

// ParseJobFit matches s case-insensitively. Unknown values yield "".
func ParseJobFit(s string) JobFit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return FitHigh
	case "medium":
		return FitMedium
	case "low":
		return FitLow
	default:
		return ""
	}
}

// Result is a validated résumé analysis. Scores are nil when the oracle
// omitted them; lists are never nil.
type Result struct {
	ATSScore             *int     `json:"ats_score,omitempty"`
	SkillMatchPercentage *int     `json:"skill_match_percentage,omitempty"`
	Summary              string   `json:"summary"`
	Strengths            []string `json:"strengths"`
	Weaknesses           []string `json:"weaknesses"`
	MissingSkills        []string `json:"missing_skills"`
	JobFit               JobFit   `json:"job_fit,omitempty"`
	Suggestions          []string `json:"suggestions"`
}

// Request is the input of an analysis prompt.
type Request struct {
	ResumeText string
	TargetRole string
}

// NewRequest truncates the résumé text to MaxResumeRunes, keeping the prefix,
// and defaults the role.
func NewRequest(resumeText, targetRole string) Request {
	targetRole = strings.TrimSpace(targetRole)
	if targetRole == "" {
		targetRole = DefaultTargetRole
	}

	return Request{
		ResumeText: utils.Prefix(resumeText, MaxResumeRunes),
		TargetRole: targetRole,
	}
}

// Preferences are the user supplied search filters.
type Preferences struct {
	TargetRole string `json:"target_role"`
	Location   string `json:"location"`
	Salary     string `json:"salary"`
}

// MatchRequest is the input of a job matching prompt.
type MatchRequest struct {
	TargetRole    string
	Location      string
	Salary        string
	KeySkills     []string
	ResumeSummary string
	Count         int
}

// NewMatchRequest derives a match request. result may be nil, in which case
// only the preferences and the résumé text are used and everything else
// falls back to generic defaults. count is clamped to 1..MaxJobCount, zero
// or less meaning DefaultJobCount.
func NewMatchRequest(result *Result, prefs Preferences, resumeText string, count int) MatchRequest {
	switch {
	case count <= 0:
		count = DefaultJobCount
	case count > MaxJobCount:
		count = MaxJobCount
	}

	req := MatchRequest{
		TargetRole: firstNonEmpty(prefs.TargetRole, DefaultTargetRole),
		Location:   firstNonEmpty(prefs.Location, DefaultLocation),
		Salary:     firstNonEmpty(prefs.Salary, DefaultSalary),
		KeySkills:  []string{},
		Count:      count,
	}

	summary := ""
	if result != nil {
		req.KeySkills = append(req.KeySkills, result.Strengths...)
		summary = result.Summary
	}

	req.ResumeSummary = firstNonEmpty(
		summary,
		utils.Prefix(strings.TrimSpace(resumeText), SummaryFallbackRunes),
		DefaultResumeSummary,
	)

	return req
}

// JobListing is one synthesized job opening. Listings are advisory and not
// guaranteed to exist.
type JobListing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Type         string   `json:"type"`
	SalaryRange  string   `json:"salary_range"`
	MatchScore   *int     `json:"match_score,omitempty"`
	MatchReason  string   `json:"match_reason"`
	Requirements []string `json:"requirements"`
	PostedDate   string   `json:"posted_date"`
	ApplyLink    string   `json:"apply_link"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
