package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"sitelog/internal/entitlement"
	"sitelog/internal/store"
	"sitelog/internal/structuring"
	"sitelog/internal/transcription"
)

func (s *Server) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Begin(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": s.manager.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Discard(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSelectSite(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		SiteID int64 `json:"site_id"`
	}
	if !s.decodeBody(w, r, &payload) {
		return
	}
	record, err := s.store.GetSite(r.Context(), payload.SiteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if record.Archived {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "site is archived"})
		return
	}
	if err := session.SelectSite(record.SiteContext); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.manager.NotifyCaptureStarted(record.Name)
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		Text string `json:"text"`
	}
	if !s.decodeBody(w, r, &payload) {
		return
	}
	if err := session.SetText(payload.Text); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.StartRecording(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleStartOver(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.StartOver(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleCancelRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.CancelRecording(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

// handleAttachAudio accepts a complete recorded memo. The body is the audio
// bytes; Content-Type identifies the codec. The upload is validated before it
// is held, and only held in the session's memory.
func (s *Server) handleAttachAudio(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()

	mimeType := r.Header.Get("Content-Type")
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, transcription.MaxAudioBytes+1))
	if err != nil {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "audio exceeds the upload limit"})
		return
	}
	if err := transcription.Validate(audio, mimeType); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := session.AttachAudio(audio, mimeType); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

// handleRecordingData appends a streamed chunk to a live recording. The size
// ceiling is enforced across the whole stream, not per chunk.
func (s *Server) handleRecordingData(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()

	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, transcription.MaxAudioBytes+1))
	if err != nil || session.AudioSize()+len(chunk) > transcription.MaxAudioBytes {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "recording exceeds the audio limit"})
		return
	}
	if err := session.AppendAudioChunk(chunk); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleFinishRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		MimeType string `json:"mime_type"`
	}
	if !s.decodeBody(w, r, &payload) {
		return
	}
	if err := session.FinishRecording(payload.MimeType, transcription.Validate); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.manager.Process(r.Context(), session.ID()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

type editPayload struct {
	Op      string   `json:"op"`
	Section string   `json:"section"`
	Index   int      `json:"index"`
	Entry   string   `json:"entry"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	JobType string   `json:"job_type"`
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var payload editPayload
	if !s.decodeBody(w, r, &payload) {
		return
	}

	err := session.EditRecord(func(record *structuring.Record) error {
		switch payload.Op {
		case "append":
			return record.AppendEntry(structuring.Section(payload.Section), payload.Entry)
		case "update":
			return record.UpdateEntry(structuring.Section(payload.Section), payload.Index, payload.Entry)
		case "remove":
			return record.RemoveEntry(structuring.Section(payload.Section), payload.Index)
		case "summary":
			return record.SetSummary(payload.Summary)
		case "tags":
			record.SetTags(payload.Tags)
			return nil
		case "job_type":
			record.SetJobType(payload.JobType)
			return nil
		default:
			return errors.New("unknown edit op " + strconv.Quote(payload.Op))
		}
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	results, err := s.manager.Submit(r.Context(), session.ID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session": session.Snapshot(),
		"results": results,
	})
}

type accountPayload struct {
	Tier           string     `json:"tier"`
	TrialExpiresAt *time.Time `json:"trial_expires_at"`
	BetaTester     bool       `json:"beta_tester"`
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetAccount(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		record = &store.AccountRecord{Tier: string(entitlement.TierFree)}
		err = nil
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state := entitlement.Check(entitlement.AccountState{
		Tier:           entitlement.ParseTier(record.Tier),
		TrialExpiresAt: record.TrialExpiresAt,
		BetaTester:     record.BetaTester,
	}, time.Now())

	s.writeJSON(w, http.StatusOK, map[string]any{
		"tier":             entitlement.ParseTier(record.Tier),
		"trial_expires_at": record.TrialExpiresAt,
		"beta_tester":      record.BetaTester,
		"has_access":       state.HasAccess,
		"trial_days_left":  state.TrialDaysLeft,
	})
}

func (s *Server) handlePutAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if !s.decodeBody(w, r, &payload) {
		return
	}
	record := store.AccountRecord{
		Tier:           string(entitlement.ParseTier(payload.Tier)),
		TrialExpiresAt: payload.TrialExpiresAt,
		BetaTester:     payload.BetaTester,
	}
	if err := s.store.PutAccount(r.Context(), record); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

// handleDowngradeAccount is the single write path for billing downgrades.
// The beta flag rides through untouched, which is what keeps beta testers'
// access alive after their trial lapses.
func (s *Server) handleDowngradeAccount(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetAccount(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		record = &store.AccountRecord{Tier: string(entitlement.TierFree)}
		err = nil
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	downgraded := entitlement.ApplyDowngrade(entitlement.AccountState{
		Tier:           entitlement.ParseTier(record.Tier),
		TrialExpiresAt: record.TrialExpiresAt,
		BetaTester:     record.BetaTester,
	})
	if err := s.store.PutAccount(r.Context(), store.AccountRecord{
		Tier:           string(downgraded.Tier),
		TrialExpiresAt: downgraded.TrialExpiresAt,
		BetaTester:     downgraded.BetaTester,
	}); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleTestNotify(w http.ResponseWriter, r *http.Request) {
	if err := s.notifier.TestNotification(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
