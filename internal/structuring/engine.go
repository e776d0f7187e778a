package structuring

import (
	"context"
	"fmt"
	"strings"

	"sitelog/internal/services/llm"
	"sitelog/internal/sites"
)

// UnverifiedSiteMarker prefixes entries the model could not clearly tie to
// the active site. Ambiguous items are always kept and flagged with this
// marker so the worker decides during review; strictness only controls how
// aggressively content that clearly belongs to another site is excluded.
const UnverifiedSiteMarker = "unverified site:"

// Strictness selects how aggressively clearly off-site content is excluded.
type Strictness string

const (
	StrictnessStrict  Strictness = "strict"
	StrictnessLenient Strictness = "lenient"
)

// Completer is the slice of the model client the engine needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Engine structures transcripts against a single site context. One engine
// serves every job type; the site identity and strictness feed the prompt
// rather than forking the logic per vertical.
type Engine struct {
	completer  Completer
	strictness Strictness
}

// NewEngine constructs an engine. Unknown strictness values fall back to strict.
func NewEngine(completer Completer, strictness Strictness) *Engine {
	if strictness != StrictnessLenient {
		strictness = StrictnessStrict
	}
	return &Engine{completer: completer, strictness: strictness}
}

const systemPromptBase = `You convert a field worker's voice memo transcript into a structured site log for exactly one job site.

Scope rules:
- Only include work, issues, and observations for the active site identified below.
- The worker may visit several sites in one day; content that belongs to another site must be excluded.
- If you cannot clearly tie an item to the active site, keep it but prefix the entry with "` + UnverifiedSiteMarker + ` ". Never drop an ambiguous item and never include it unflagged.
- If the same site is mentioned in several non-contiguous parts of the transcript, merge all of it into one log.
`

const strictScopeRule = `- Exclude an item as soon as it names another site, address, permit, or customer, even when it sits next to work for the active site.
`

const lenientScopeRule = `- Exclude an item only when it is unmistakably about another site; otherwise treat it as ambiguous and flag it.
`

const systemPromptSchema = `
Respond with a single JSON object and nothing else:
{
  "summary": "two or three sentences covering the visit",
  "work_completed": ["..."],
  "issues": ["..."],
  "safety": ["..."],
  "next_steps": ["..."],
  "tags": ["short lowercase keywords"],
  "job_type": "retail|industrial|healthcare|multi-family|residential|office|other"
}
Every field must be present. Use empty arrays for sections with no content, never null.
Do not invent work that is not in the transcript.`

func (e *Engine) systemPrompt() string {
	var b strings.Builder
	b.WriteString(systemPromptBase)
	if e.strictness == StrictnessLenient {
		b.WriteString(lenientScopeRule)
	} else {
		b.WriteString(strictScopeRule)
	}
	b.WriteString(systemPromptSchema)
	return b.String()
}

// Structure converts a transcript into a normalized Record scoped to site.
func (e *Engine) Structure(ctx context.Context, transcript string, site sites.SiteContext) (*Record, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}

	userPrompt := "Active site:\n" + site.Describe() + "\nTranscript:\n" + transcript

	content, err := e.completer.CompleteJSON(ctx, e.systemPrompt(), userPrompt)
	if err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}

	var record Record
	if err := llm.DecodeLLMJSON(content, &record); err != nil {
		return nil, malformed(err)
	}
	record.Normalize()
	if record.IsEmpty() {
		return nil, malformed(fmt.Errorf("model returned a log with no content"))
	}
	return &record, nil
}
