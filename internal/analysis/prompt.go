package analysis

import (
	_ "embed"
	"strconv"
	"strings"
)

var (
	//go:embed prompts/analysis.md
	analysisTemplate string
	//go:embed prompts/jobs.md
	jobsTemplate string
)

type schemaField struct {
	name    string
	example string
}

var resultSchema = []schemaField{
	{FieldATSScore, "(integer 0-100)"},
	{FieldSkillMatchPercentage, "(integer 0-100)"},
	{FieldSummary, `"Brief professional summary of the candidate"`},
	{FieldStrengths, `["strength", "..."]`},
	{FieldWeaknesses, `["weakness", "..."]`},
	{FieldMissingSkills, `["missing skill", "..."]`},
	{FieldJobFit, `"High" | "Medium" | "Low"`},
	{FieldSuggestions, `["Actionable improvement 1", "Actionable improvement 2"]`},
}

var listingSchema = []schemaField{
	{FieldID, `"1"`},
	{FieldTitle, `"Job title"`},
	{FieldCompany, `"Company name (real, well known companies in the industry)"`},
	{FieldLocation, `"Remote | Hybrid | City"`},
	{FieldType, `"Full-time | Contract"`},
	{FieldSalaryRange, `"$X - $Y"`},
	{FieldMatchScore, "(integer 0-100)"},
	{FieldMatchReason, `"Why this fits the candidate (one short sentence)"`},
	{FieldRequirements, `["Skill 1", "Skill 2", "Skill 3"]`},
	{FieldPostedDate, `"2 days ago"`},
	{FieldApplyLink, `"https://www.linkedin.com/jobs/search/?keywords=..."`},
}

// BuildAnalysisPrompt renders the résumé analysis instruction.
func BuildAnalysisPrompt(req Request) string {
	template := analysisTemplate
	if strings.TrimSpace(template) == "" {
		template = "Role: {{TARGET_ROLE}}\n\nResume:\n{{RESUME_TEXT}}\n\nJSON response (no code fences):\n{{SCHEMA}}"
	}

	return strings.NewReplacer(
		"{{TARGET_ROLE}}", req.TargetRole,
		"{{RESUME_TEXT}}", req.ResumeText,
		"{{SCHEMA}}", renderSchema(resultSchema, ""),
	).Replace(template)
}

// BuildMatchPrompt renders the job matching instruction.
func BuildMatchPrompt(req MatchRequest) string {
	template := jobsTemplate
	if strings.TrimSpace(template) == "" {
		template = "Role: {{TARGET_ROLE}}\nLocation: {{LOCATION}}\nSalary: {{SALARY}}\nSkills: {{KEY_SKILLS}}\nSummary: {{RESUME_SUMMARY}}\n\n{{JOB_COUNT}} listings as JSON (no code fences):\n{{SCHEMA}}"
	}

	skills := strings.Join(req.KeySkills, ", ")
	if strings.TrimSpace(skills) == "" {
		skills = DefaultKeySkills
	}

	listing := renderSchema(listingSchema, "    ")
	schema := "{\n  \"" + FieldJobs + "\": [\n    " + listing + "\n  ]\n}"

	return strings.NewReplacer(
		"{{TARGET_ROLE}}", req.TargetRole,
		"{{LOCATION}}", req.Location,
		"{{SALARY}}", req.Salary,
		"{{KEY_SKILLS}}", skills,
		"{{RESUME_SUMMARY}}", req.ResumeSummary,
		"{{JOB_COUNT}}", strconv.Itoa(req.Count),
		"{{SCHEMA}}", schema,
	).Replace(template)
}

func renderSchema(fields []schemaField, indent string) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(indent)
		b.WriteString("  \"")
		b.WriteString(f.name)
		b.WriteString("\": ")
		b.WriteString(f.example)
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteString("}")
	return b.String()
}
