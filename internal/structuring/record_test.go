package structuring

import (
	"strings"
	"testing"
	"time"

	"sitelog/internal/sites"
)

func sampleRecord() *Record {
	return &Record{
		Summary:       "Replaced RTU filters and closed two punch list items.",
		WorkCompleted: []string{"Replaced filters on RTU-2"},
		Issues:        []string{"Roof access hatch latch is bent"},
		Safety:        []string{},
		NextSteps:     []string{"Order replacement latch"},
		Tags:          []string{"hvac"},
		JobType:       JobRetail,
	}
}

func TestAppendUpdateRemoveEntry(t *testing.T) {
	record := sampleRecord()

	if err := record.AppendEntry(SectionIssues, "Parking lot light out near entrance"); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if len(record.Issues) != 2 {
		t.Fatalf("issues = %v", record.Issues)
	}

	if err := record.UpdateEntry(SectionIssues, 0, "Roof hatch latch replaced on the spot"); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if record.Issues[0] != "Roof hatch latch replaced on the spot" {
		t.Fatalf("issues[0] = %q", record.Issues[0])
	}

	if err := record.RemoveEntry(SectionIssues, 1); err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	if len(record.Issues) != 1 {
		t.Fatalf("issues after remove = %v", record.Issues)
	}
}

func TestEditRejectsBadInput(t *testing.T) {
	record := sampleRecord()

	if err := record.AppendEntry("demolition", "entry"); err == nil {
		t.Fatal("expected error for unknown section")
	}
	if err := record.AppendEntry(SectionIssues, "   "); err == nil {
		t.Fatal("expected error for blank entry")
	}
	if err := record.UpdateEntry(SectionIssues, 5, "entry"); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
	if err := record.RemoveEntry(SectionIssues, -1); err == nil {
		t.Fatal("expected error for negative index")
	}
}

func TestNormalizeMakesListsNonNil(t *testing.T) {
	record := &Record{Summary: "  visit summary  ", JobType: "Retail"}
	record.Normalize()

	if record.Summary != "visit summary" {
		t.Fatalf("summary = %q", record.Summary)
	}
	for name, list := range map[string][]string{
		"work_completed": record.WorkCompleted,
		"issues":         record.Issues,
		"safety":         record.Safety,
		"next_steps":     record.NextSteps,
		"tags":           record.Tags,
	} {
		if list == nil {
			t.Errorf("%s is nil after Normalize", name)
		}
	}
	if record.JobType != JobRetail {
		t.Fatalf("job type = %q", record.JobType)
	}
}

func TestRenderLogOmitsEmptySections(t *testing.T) {
	record := sampleRecord()
	site := sites.SiteContext{Name: "Riverside Retail", Address: "123 Main St", PermitID: "P-7741"}
	capturedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	out := RenderLog(record, site, capturedAt)

	if !strings.Contains(out, "# Site Log: Riverside Retail") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "**Date:** March 10, 2026") {
		t.Fatalf("missing date:\n%s", out)
	}
	if !strings.Contains(out, "**Job Type:** Retail") {
		t.Fatalf("missing title-cased job type:\n%s", out)
	}
	if !strings.Contains(out, "**Permit:** P-7741") {
		t.Fatalf("missing permit:\n%s", out)
	}
	if strings.Contains(out, "## Safety") {
		t.Fatalf("empty safety section should be omitted:\n%s", out)
	}
	if !strings.Contains(out, "- Replaced filters on RTU-2") {
		t.Fatalf("missing work entry:\n%s", out)
	}
	if !strings.Contains(out, "**Tags:** hvac") {
		t.Fatalf("missing tags:\n%s", out)
	}
}
