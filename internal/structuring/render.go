package structuring

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitelog/internal/sites"
)

var titleCaser = cases.Title(language.AmericanEnglish)

var sectionHeadings = []struct {
	title string
	pick  func(*Record) []string
}{
	{"Work Completed", func(r *Record) []string { return r.WorkCompleted }},
	{"Issues", func(r *Record) []string { return r.Issues }},
	{"Safety", func(r *Record) []string { return r.Safety }},
	{"Next Steps", func(r *Record) []string { return r.NextSteps }},
}

// RenderLog renders the record as the markdown document that is pushed to
// destinations. Empty sections are omitted from the output.
func RenderLog(record *Record, site sites.SiteContext, capturedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Site Log: %s\n\n", strings.TrimSpace(site.Name))
	fmt.Fprintf(&b, "**Date:** %s\n", capturedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "**Address:** %s\n", strings.TrimSpace(site.Address))
	if permit := strings.TrimSpace(site.PermitID); permit != "" {
		fmt.Fprintf(&b, "**Permit:** %s\n", permit)
	}
	fmt.Fprintf(&b, "**Job Type:** %s\n\n", titleCaser.String(string(record.JobType)))

	if record.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(record.Summary)
		b.WriteString("\n\n")
	}

	for _, section := range sectionHeadings {
		entries := section.pick(record)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", section.title)
		for _, entry := range entries {
			fmt.Fprintf(&b, "- %s\n", entry)
		}
		b.WriteString("\n")
	}

	if len(record.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(record.Tags, ", "))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
