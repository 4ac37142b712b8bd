package analysis

// Field names of the oracle answers. The prompts render their schemas from
// these constants so the validator and the prompts cannot drift apart.
const (
	FieldATSScore             = "ats_score"
	FieldSkillMatchPercentage = "skill_match_percentage"
	FieldSummary              = "summary"
	FieldStrengths            = "strengths"
	FieldWeaknesses           = "weaknesses"
	FieldMissingSkills        = "missing_skills"
	FieldJobFit               = "job_fit"
	FieldSuggestions          = "suggestions"

	FieldJobs         = "jobs"
	FieldID           = "id"
	FieldTitle        = "title"
	FieldCompany      = "company"
	FieldLocation     = "location"
	FieldType         = "type"
	FieldSalaryRange  = "salary_range"
	FieldMatchScore   = "match_score"
	FieldMatchReason  = "match_reason"
	FieldRequirements = "requirements"
	FieldPostedDate   = "posted_date"
	FieldApplyLink    = "apply_link"
)
