// Package sync fans a finished log out to every configured destination and
// records the durable metadata row. Destinations succeed or fail
// independently; one slow or broken integration never blocks the others.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/sites"
	"sitelog/internal/store"
	"sitelog/internal/structuring"
)

// Payload is the fully rendered log handed to each destination.
type Payload struct {
	SessionID string
	Site      sites.SiteContext
	Record    *structuring.Record
	Rendered  string
	// Duration estimates the time spent on site, measured from the start of
	// the capture session to submission.
	Duration   time.Duration
	CapturedAt time.Time
}

// Destination is a place a log can be pushed to.
type Destination interface {
	// Kind is a stable identifier like "notion" or "drive".
	Kind() string
	// Connected reports whether the destination has working credentials.
	Connected() bool
	// Push delivers the payload. Only called when Connected is true.
	Push(ctx context.Context, payload Payload) error
}

// Outcome classifies a single destination's sync result.
type Outcome string

const (
	OutcomeSynced       Outcome = "synced"
	OutcomeNotConnected Outcome = "not_connected"
	OutcomeFailed       Outcome = "failed"
)

// Result is the verdict for one destination. Submit returns exactly one
// Result per registered destination, connected or not, in registration
// order.
type Result struct {
	Destination string  `json:"destination"`
	Outcome     Outcome `json:"outcome"`
	Detail      string  `json:"detail,omitempty"`
}

// ErrMetadataWrite indicates the local metadata row could not be recorded.
// Destination pushes may still have gone through; the caller must treat the
// submission as failed because the log would otherwise be untraceable.
var ErrMetadataWrite = errors.New("write log metadata")

// MetadataWriter is the slice of the store the orchestrator needs.
type MetadataWriter interface {
	SaveMetadata(ctx context.Context, meta store.LogMetadata) (int64, error)
	SetMetadataOutcomes(ctx context.Context, id int64, outcomes string) error
}

// Orchestrator coordinates the fan-out.
type Orchestrator struct {
	destinations []Destination
	meta         MetadataWriter
	notifier     notifications.Service
	logger       *slog.Logger
	pushTimeout  time.Duration
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithPushTimeout bounds each destination push (defaults to 60s).
func WithPushTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.pushTimeout = timeout
		}
	}
}

// NewOrchestrator constructs an orchestrator over the given destinations.
func NewOrchestrator(destinations []Destination, meta MetadataWriter, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		destinations: destinations,
		meta:         meta,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "sync"),
		pushTimeout:  60 * time.Second,
	}
	if o.notifier == nil {
		o.notifier = notifications.Noop()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit persists the metadata row and pushes the payload to every
// destination concurrently. The metadata write happens first: if it fails,
// nothing is pushed and ErrMetadataWrite is returned. Once every push has
// settled, the row is updated with the per-destination outcomes. Push
// failures never produce an error; they are reported per destination in the
// results.
func (o *Orchestrator) Submit(ctx context.Context, payload Payload) ([]Result, error) {
	meta := store.LogMetadata{
		SessionID:    payload.SessionID,
		SiteID:       payload.Site.ID,
		SiteName:     payload.Site.Name,
		SiteAddress:  payload.Site.Address,
		JobType:      string(payload.Record.JobType),
		Summary:      payload.Record.Summary,
		Tags:         payload.Record.Tags,
		DurationSecs: int64(payload.Duration / time.Second),
		CapturedAt:   payload.CapturedAt,
	}
	meta.Destinations = o.connectedKinds()

	id, err := o.meta.SaveMetadata(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataWrite, err)
	}

	results := o.pushAll(ctx, payload)

	// The pushes already happened; failing the submission here would invite
	// a resubmit that trips the duplicate-session guard. Log and move on.
	if err := o.meta.SetMetadataOutcomes(ctx, id, EncodeOutcomes(results)); err != nil {
		logging.WithContext(ctx, o.logger).Warn("metadata outcome update failed",
			logging.String(logging.FieldSite, payload.Site.Name),
			logging.Error(err))
	}

	o.notifyOutcome(payload, results)
	return results, nil
}

// EncodeOutcomes serializes per-destination verdicts in registration order,
// e.g. "notion=synced,drive=failed".
func EncodeOutcomes(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		parts = append(parts, result.Destination+"="+string(result.Outcome))
	}
	return strings.Join(parts, ",")
}

func (o *Orchestrator) connectedKinds() []string {
	var kinds []string
	for _, dest := range o.destinations {
		if dest.Connected() {
			kinds = append(kinds, dest.Kind())
		}
	}
	return kinds
}

func (o *Orchestrator) pushAll(ctx context.Context, payload Payload) []Result {
	results := make([]Result, len(o.destinations))
	var wg sync.WaitGroup

	for i, dest := range o.destinations {
		if !dest.Connected() {
			results[i] = Result{Destination: dest.Kind(), Outcome: OutcomeNotConnected}
			continue
		}
		wg.Add(1)
		go func(i int, dest Destination) {
			defer wg.Done()
			results[i] = o.pushOne(ctx, dest, payload)
		}(i, dest)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) pushOne(ctx context.Context, dest Destination, payload Payload) Result {
	pushCtx, cancel := context.WithTimeout(ctx, o.pushTimeout)
	defer cancel()

	logger := logging.WithContext(ctx, o.logger).With(logging.Args(
		logging.String(logging.FieldDestination, dest.Kind()),
		logging.String(logging.FieldSite, payload.Site.Name),
	)...)

	if err := dest.Push(pushCtx, payload); err != nil {
		logger.Error("destination push failed", logging.Error(err))
		return Result{Destination: dest.Kind(), Outcome: OutcomeFailed, Detail: err.Error()}
	}
	logger.Info("destination push complete")
	return Result{Destination: dest.Kind(), Outcome: OutcomeSynced}
}

// notifyOutcome fires the submission notification without blocking the
// submission path. Notification failures are logged and dropped.
func (o *Orchestrator) notifyOutcome(payload Payload, results []Result) {
	var synced, failed []string
	for _, result := range results {
		switch result.Outcome {
		case OutcomeSynced:
			synced = append(synced, result.Destination)
		case OutcomeFailed:
			failed = append(failed, result.Destination)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		var err error
		if len(failed) > 0 {
			err = o.notifier.NotifySubmissionFailed(ctx, payload.Site.Name, failed)
		} else {
			err = o.notifier.NotifyLogSubmitted(ctx, payload.Site.Name, payload.Record.Summary, synced)
		}
		if err != nil {
			o.logger.Warn("submission notification failed", logging.Error(err))
		}
	}()
}
