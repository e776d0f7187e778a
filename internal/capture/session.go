// Package capture drives a log from site selection through review to
// submission. A session holds the only copies of the recorded audio and the
// transcript; both live in memory and are wiped the moment a structured
// record exists. Nothing in this package writes either to disk.
package capture

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"sitelog/internal/sites"
	"sitelog/internal/structuring"
	logsync "sitelog/internal/sync"
)

// Stage is a capture session's position in the pipeline.
type Stage string

const (
	StagePickSite     Stage = "pick_site"
	StageForm         Stage = "form"
	StageRecording    Stage = "recording"
	StageTranscribing Stage = "transcribing"
	StageStructuring  Stage = "structuring"
	StageReview       Stage = "review"
	StageSubmitting   Stage = "submitting"
	StageDone         Stage = "done"
)

// Session is one in-flight capture. All mutation goes through methods that
// hold the session lock; Snapshot returns a consistent copy for callers.
type Session struct {
	mu sync.Mutex

	id        string
	stage     Stage
	site      sites.SiteContext
	createdAt time.Time
	touchedAt time.Time

	// Transient capture data. Wiped on entry to Review.
	audio     []byte
	audioMIME string
	text      string

	record   *structuring.Record
	results  []logsync.Result
	lastErr  string
	busy     bool
}

// Snapshot is a read-only copy of session state.
type Snapshot struct {
	ID         string              `json:"id"`
	Stage      Stage               `json:"stage"`
	Site       *sites.SiteContext  `json:"site,omitempty"`
	HasAudio   bool                `json:"has_audio"`
	HasText    bool                `json:"has_text"`
	Record     *structuring.Record `json:"record,omitempty"`
	Results    []logsync.Result    `json:"results,omitempty"`
	LastError  string              `json:"last_error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		Stage:     s.stage,
		HasAudio:  len(s.audio) > 0,
		HasText:   s.text != "",
		LastError: s.lastErr,
		CreatedAt: s.createdAt,
	}
	if s.site.Name != "" {
		site := s.site
		snap.Site = &site
	}
	if s.record != nil {
		record := *s.record
		snap.Record = &record
	}
	if len(s.results) > 0 {
		snap.Results = append([]logsync.Result(nil), s.results...)
	}
	return snap
}

func (s *Session) touch() { s.touchedAt = time.Now() }

// SelectSite moves the session from PickSite to Form.
func (s *Session) SelectSite(site sites.SiteContext) error {
	if err := site.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StagePickSite {
		return stageError(s.stage, "select site", StagePickSite)
	}
	s.site = site
	s.stage = StageForm
	s.touch()
	return nil
}

// SetText records typed log text in place of a voice memo.
func (s *Session) SetText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageForm {
		return stageError(s.stage, "set text", StageForm)
	}
	s.text = text
	s.audio = nil
	s.audioMIME = ""
	s.touch()
	return nil
}

// StartRecording moves the session to the Recording stage.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageForm {
		return stageError(s.stage, "start recording", StageForm)
	}
	s.wipeTransient()
	s.stage = StageRecording
	s.touch()
	return nil
}

// AttachAudio stores an already-recorded memo, replacing any typed text. Used
// for file uploads; the session stays in Form, ready to process. The audio
// lives only in this session's memory.
func (s *Session) AttachAudio(audio []byte, mimeType string) error {
	if len(audio) == 0 {
		return fmt.Errorf("audio must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageForm {
		return stageError(s.stage, "attach audio", StageForm)
	}
	s.audio = append([]byte(nil), audio...)
	s.audioMIME = mimeType
	s.text = ""
	s.touch()
	return nil
}

// AppendAudioChunk adds streamed recording bytes to the in-progress memo.
func (s *Session) AppendAudioChunk(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageRecording {
		return stageError(s.stage, "append audio", StageRecording)
	}
	s.audio = append(s.audio, chunk...)
	s.touch()
	return nil
}

// FinishRecording closes a live recording and returns the session to Form
// with the accumulated audio attached. When validate is non-nil it runs
// against the full buffer before the recording is accepted.
func (s *Session) FinishRecording(mimeType string, validate func(audio []byte, mimeType string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageRecording {
		return stageError(s.stage, "finish recording", StageRecording)
	}
	if len(s.audio) == 0 {
		return fmt.Errorf("recording is empty")
	}
	if validate != nil {
		if err := validate(s.audio, mimeType); err != nil {
			return err
		}
	}
	s.audioMIME = mimeType
	s.text = ""
	s.stage = StageForm
	s.touch()
	return nil
}

// AudioSize reports the bytes held for the current capture.
func (s *Session) AudioSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audio)
}

// CancelRecording abandons an in-progress recording, wiping any streamed
// bytes, and returns to Form.
func (s *Session) CancelRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageRecording {
		return stageError(s.stage, "cancel recording", StageRecording)
	}
	s.wipeTransient()
	s.stage = StageForm
	s.touch()
	return nil
}

// wipeTransient destroys the audio and transcript. Called with the lock held
// when the structured record becomes the source of truth, and on discard.
func (s *Session) wipeTransient() {
	for i := range s.audio {
		s.audio[i] = 0
	}
	s.audio = nil
	s.audioMIME = ""
	s.text = ""
}

// StartOver abandons the reviewed record and returns the session to site
// selection. Everything captured so far, including the site choice, is
// discarded; the session keeps its identity and creation time.
func (s *Session) StartOver() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	if s.stage != StageReview {
		return stageError(s.stage, "start over", StageReview)
	}
	s.wipeTransient()
	s.site = sites.SiteContext{}
	s.record = nil
	s.results = nil
	s.lastErr = ""
	s.stage = StagePickSite
	s.touch()
	return nil
}

// EditRecord applies fn to the record under the session lock. Only valid
// during Review.
func (s *Session) EditRecord(fn func(*structuring.Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageReview {
		return stageError(s.stage, "edit record", StageReview)
	}
	if s.record == nil {
		return fmt.Errorf("no record to edit")
	}
	return fn(s.record)
}

func stageError(current Stage, operation string, want Stage) error {
	return fmt.Errorf("cannot %s in stage %q (requires %q)", operation, current, want)
}
