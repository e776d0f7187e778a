package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitelog/internal/entitlement"
	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/services"
	"sitelog/internal/sites"
	"sitelog/internal/store"
	"sitelog/internal/structuring"
	logsync "sitelog/internal/sync"
	"sitelog/internal/transcription"
)

// ErrSessionNotFound indicates the session ID is unknown or already swept.
var ErrSessionNotFound = errors.New("session not found")

// ErrBusy indicates the session is already mid-processing or mid-submission.
var ErrBusy = errors.New("session is busy")

// Transcriber is the slice of the transcription service the manager needs.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Structurer is the slice of the structuring engine the manager needs.
type Structurer interface {
	Structure(ctx context.Context, transcript string, site sites.SiteContext) (*structuring.Record, error)
}

// AccountReader loads the cached account snapshot for the entitlement gate.
type AccountReader interface {
	GetAccount(ctx context.Context) (*store.AccountRecord, error)
}

// Submitter fans the finished log out to destinations.
type Submitter interface {
	Submit(ctx context.Context, payload logsync.Payload) ([]logsync.Result, error)
}

// Manager owns all live capture sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	accounts    AccountReader
	transcriber Transcriber
	structurer  Structurer
	submitter   Submitter
	notifier    notifications.Service
	logger      *slog.Logger

	ttl time.Duration
	now func() time.Time
}

// NewManager constructs a session manager.
func NewManager(accounts AccountReader, transcriber Transcriber, structurer Structurer, submitter Submitter, notifier notifications.Service, logger *slog.Logger, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		accounts:    accounts,
		transcriber: transcriber,
		structurer:  structurer,
		submitter:   submitter,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "capture"),
		ttl:         ttl,
		now:         time.Now,
	}
}

// Begin checks the entitlement gate and creates a new session in PickSite.
// Nothing else happens before the gate: a locked account never reaches site
// selection, let alone recording.
func (m *Manager) Begin(ctx context.Context) (*Session, error) {
	account, err := m.accounts.GetAccount(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, services.Wrap(services.ErrTransient, "capture", "check access", "load account", err)
	}

	state := entitlement.AccountState{Tier: entitlement.TierFree}
	if account != nil {
		state = entitlement.AccountState{
			Tier:           entitlement.ParseTier(account.Tier),
			TrialExpiresAt: account.TrialExpiresAt,
			BetaTester:     account.BetaTester,
		}
	}
	if _, err := entitlement.Gate(state, m.now()); err != nil {
		return nil, services.Wrap(services.ErrEntitlement, "capture", "check access", "Trial expired", err)
	}

	session := &Session{
		id:        uuid.NewString(),
		stage:     StagePickSite,
		createdAt: m.now(),
		touchedAt: m.now(),
	}

	m.mu.Lock()
	m.sessions[session.id] = session
	m.mu.Unlock()

	m.logger.Info("capture session started",
		logging.String(logging.FieldSessionID, session.id))
	return session, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// List returns snapshots of all live sessions.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshots := make([]Snapshot, 0, len(m.sessions))
	for _, session := range m.sessions {
		snapshots = append(snapshots, session.Snapshot())
	}
	return snapshots
}

// Discard destroys a session and its transient data.
func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	session.mu.Lock()
	session.wipeTransient()
	session.mu.Unlock()

	m.logger.Info("capture session discarded",
		logging.String(logging.FieldSessionID, id))
	return nil
}

// Process runs the capture through transcription and structuring, landing in
// Review on success. On any failure the session returns to Form with the
// error recorded; provider failures keep the audio so the worker can retry
// without re-recording.
func (m *Manager) Process(ctx context.Context, id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	if session.busy {
		session.mu.Unlock()
		return ErrBusy
	}
	if session.stage != StageForm {
		stage := session.stage
		session.mu.Unlock()
		return stageError(stage, "process", StageForm)
	}
	if len(session.audio) == 0 && session.text == "" {
		session.mu.Unlock()
		return fmt.Errorf("nothing to process: record audio or enter text first")
	}
	session.busy = true
	audio := session.audio
	audioMIME := session.audioMIME
	text := session.text
	site := session.site
	session.lastErr = ""
	session.mu.Unlock()

	ctx = services.WithSessionID(ctx, id)
	logger := logging.WithContext(ctx, m.logger)

	transcript := text
	if transcript == "" {
		session.setStage(StageTranscribing)
		logger.Info("transcribing memo", logging.Int("audio_bytes", len(audio)))
		transcript, err = m.transcriber.Transcribe(ctx, audio, audioMIME)
		if err != nil {
			m.failToForm(session, err, !transcription.Retryable(err))
			return services.Wrap(services.ErrExternalService, "capture", "transcribe", "Transcription failed", err)
		}
	}

	session.setStage(StageStructuring)
	logger.Info("structuring transcript",
		logging.String(logging.FieldSite, site.Name),
		logging.Int("transcript_chars", len(transcript)))
	record, err := m.structurer.Structure(ctx, transcript, site)
	if err != nil {
		m.failToForm(session, err, false)
		return services.Wrap(services.ErrExternalService, "capture", "structure", "Structuring failed", err)
	}

	session.mu.Lock()
	session.record = record
	session.stage = StageReview
	session.wipeTransient()
	session.busy = false
	session.touch()
	session.mu.Unlock()

	logger.Info("capture ready for review")
	return nil
}

// failToForm records the error and returns the session to Form. When
// dropTransient is set the audio and transcript are wiped too; retryable
// provider failures keep them so the worker does not have to re-record.
func (m *Manager) failToForm(session *Session, err error, dropTransient bool) {
	session.mu.Lock()
	session.stage = StageForm
	session.lastErr = services.UserMessage(err)
	if dropTransient {
		session.wipeTransient()
	}
	session.busy = false
	session.touch()
	session.mu.Unlock()
}

// Submit pushes the reviewed log to every destination and finishes the
// session. A metadata write failure returns the session to Review so the
// worker can retry; push failures are verdicts, not errors.
func (m *Manager) Submit(ctx context.Context, id string) ([]logsync.Result, error) {
	session, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.busy {
		session.mu.Unlock()
		return nil, ErrBusy
	}
	if session.stage != StageReview {
		stage := session.stage
		session.mu.Unlock()
		return nil, stageError(stage, "submit", StageReview)
	}
	session.busy = true
	session.stage = StageSubmitting
	record := *session.record
	site := session.site
	createdAt := session.createdAt
	session.mu.Unlock()

	ctx = services.WithSessionID(ctx, id)
	payload := logsync.Payload{
		SessionID:  id,
		Site:       site,
		Record:     &record,
		Rendered:   structuring.RenderLog(&record, site, createdAt),
		Duration:   m.now().Sub(createdAt),
		CapturedAt: createdAt,
	}

	results, err := m.submitter.Submit(ctx, payload)
	if err != nil {
		session.mu.Lock()
		session.stage = StageReview
		session.lastErr = services.UserMessage(err)
		session.busy = false
		session.touch()
		session.mu.Unlock()
		return nil, services.Wrap(services.ErrTransient, "capture", "submit", "Could not record the log", err)
	}

	session.mu.Lock()
	session.results = results
	session.stage = StageDone
	session.lastErr = ""
	session.busy = false
	session.touch()
	session.mu.Unlock()

	logging.WithContext(ctx, m.logger).Info("capture submitted",
		logging.String(logging.FieldSite, site.Name),
		logging.Int("destinations", len(results)))
	return results, nil
}

func (s *Session) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.touch()
	s.mu.Unlock()
}

// NotifyCaptureStarted fires the capture notification for a site selection.
// Failures are logged and dropped; notifications never block the pipeline.
func (m *Manager) NotifyCaptureStarted(siteName string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.notifier.NotifyCaptureStarted(ctx, siteName); err != nil {
			m.logger.Warn("capture notification failed", logging.Error(err))
		}
	}()
}

// SweepExpired discards sessions idle past the TTL and returns how many were
// removed. Transient data in swept sessions is wiped.
func (m *Manager) SweepExpired() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, session := range m.sessions {
		session.mu.Lock()
		idle := session.touchedAt.Before(cutoff)
		session.mu.Unlock()
		if idle {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.mu.Lock()
		session.wipeTransient()
		session.mu.Unlock()
		m.logger.Info("expired capture session swept",
			logging.String(logging.FieldSessionID, session.id))
	}
	return len(expired)
}

// RunSweeper sweeps expired sessions on the given interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired()
		}
	}
}
