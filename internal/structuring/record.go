// Package structuring turns a raw transcript into a structured site log
// scoped to a single job site.
package structuring

import "strings"

// JobType categorizes the site a log was captured at.
type JobType string

const (
	JobRetail      JobType = "retail"
	JobIndustrial  JobType = "industrial"
	JobHealthcare  JobType = "healthcare"
	JobMultiFamily JobType = "multi-family"
	JobResidential JobType = "residential"
	JobOffice      JobType = "office"
	JobOther       JobType = "other"
)

var validJobTypes = map[JobType]struct{}{
	JobRetail:      {},
	JobIndustrial:  {},
	JobHealthcare:  {},
	JobMultiFamily: {},
	JobResidential: {},
	JobOffice:      {},
	JobOther:       {},
}

// ParseJobType normalizes a job type string; unrecognized values map to other.
func ParseJobType(value string) JobType {
	jt := JobType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := validJobTypes[jt]; ok {
		return jt
	}
	return JobOther
}

// Record is a structured site log. List fields are always non-nil after
// Normalize; an empty section renders as empty, never null.
type Record struct {
	Summary       string   `json:"summary"`
	WorkCompleted []string `json:"work_completed"`
	Issues        []string `json:"issues"`
	Safety        []string `json:"safety"`
	NextSteps     []string `json:"next_steps"`
	Tags          []string `json:"tags"`
	JobType       JobType  `json:"job_type"`
}

// Normalize trims entries, drops blanks, replaces nil lists with empty ones,
// and coerces the job type into the known set.
func (r *Record) Normalize() {
	r.Summary = strings.TrimSpace(r.Summary)
	r.WorkCompleted = cleanList(r.WorkCompleted)
	r.Issues = cleanList(r.Issues)
	r.Safety = cleanList(r.Safety)
	r.NextSteps = cleanList(r.NextSteps)
	r.Tags = cleanTags(r.Tags)
	r.JobType = ParseJobType(string(r.JobType))
}

// IsEmpty reports whether the record carries no content at all.
func (r *Record) IsEmpty() bool {
	return r.Summary == "" &&
		len(r.WorkCompleted) == 0 &&
		len(r.Issues) == 0 &&
		len(r.Safety) == 0 &&
		len(r.NextSteps) == 0
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func cleanTags(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		tag := strings.ToLower(strings.TrimSpace(v))
		tag = strings.ReplaceAll(tag, " ", "-")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
