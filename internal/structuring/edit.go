package structuring

import (
	"fmt"
	"strings"
)

// Section names an editable list within a Record.
type Section string

const (
	SectionWorkCompleted Section = "work_completed"
	SectionIssues        Section = "issues"
	SectionSafety        Section = "safety"
	SectionNextSteps     Section = "next_steps"
)

func (r *Record) section(section Section) (*[]string, error) {
	switch section {
	case SectionWorkCompleted:
		return &r.WorkCompleted, nil
	case SectionIssues:
		return &r.Issues, nil
	case SectionSafety:
		return &r.Safety, nil
	case SectionNextSteps:
		return &r.NextSteps, nil
	default:
		return nil, fmt.Errorf("unknown section %q", section)
	}
}

// AppendEntry adds an entry to the end of a section.
func (r *Record) AppendEntry(section Section, entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return fmt.Errorf("entry must not be empty")
	}
	list, err := r.section(section)
	if err != nil {
		return err
	}
	*list = append(*list, entry)
	return nil
}

// UpdateEntry replaces the entry at index within a section.
func (r *Record) UpdateEntry(section Section, index int, entry string) error {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return fmt.Errorf("entry must not be empty")
	}
	list, err := r.section(section)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return fmt.Errorf("index %d out of range for %s (%d entries)", index, section, len(*list))
	}
	(*list)[index] = entry
	return nil
}

// RemoveEntry deletes the entry at index within a section.
func (r *Record) RemoveEntry(section Section, index int) error {
	list, err := r.section(section)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*list) {
		return fmt.Errorf("index %d out of range for %s (%d entries)", index, section, len(*list))
	}
	*list = append((*list)[:index], (*list)[index+1:]...)
	return nil
}

// SetSummary replaces the summary text.
func (r *Record) SetSummary(summary string) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fmt.Errorf("summary must not be empty")
	}
	r.Summary = summary
	return nil
}

// SetTags replaces the tag list. Tags pass through the same normalization as
// model output, so hand-entered tags end up in the same slug form.
func (r *Record) SetTags(tags []string) {
	r.Tags = cleanTags(tags)
}

// SetJobType replaces the job type. Unknown values map to other.
func (r *Record) SetJobType(value string) {
	r.JobType = ParseJobType(value)
}
