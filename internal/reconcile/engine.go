package reconcile

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doorman/internal/browser"
	"doorman/internal/config"
	"doorman/internal/decision"
	"doorman/internal/logging"
	"doorman/internal/notify"
	"doorman/internal/ocr"
	"doorman/internal/segment"
	"doorman/internal/textutil"
)

// Segmenter is the card detection capability the engine needs.
type Segmenter interface {
	Segment(page image.Image) []segment.CardRegion
	Reacquire(screen, cardCrop image.Image) segment.MatchResult
}

// LabelExtractor turns a card crop into an optional identity label.
type LabelExtractor interface {
	Extract(ctx context.Context, card image.Image) (*ocr.Label, error)
}

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration
	// Seen counts cards that produced a usable identity this cycle.
	Seen int
	// Notified counts new-request notifications emitted.
	Notified int
	// Executed counts successful actuations.
	Executed int
	// Skipped counts cards dropped by extraction failure or key collision.
	Skipped int
	// Errors counts per-card failures that did not abort the cycle.
	Errors int
}

// Engine reconciles the on-screen request list with the decision store.
type Engine struct {
	surface     browser.Surface
	segmenter   Segmenter
	extractor   LabelExtractor
	store       *decision.Store
	notifier    notify.Service
	logger      *slog.Logger
	requestsURL string
	snapshotDir string
}

// New constructs a reconciliation engine.
func New(
	cfg *config.Config,
	surface browser.Surface,
	segmenter Segmenter,
	extractor LabelExtractor,
	store *decision.Store,
	notifier notify.Service,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		surface:     surface,
		segmenter:   segmenter,
		extractor:   extractor,
		store:       store,
		notifier:    notifier,
		logger:      logger.With(logging.String(logging.FieldComponent, "reconcile")),
		requestsURL: cfg.Bridge.RequestsURL,
		snapshotDir: cfg.Paths.SnapshotDir,
	}
}

// observation is one card that survived extraction, paired with its crop
// for notifications and post-actuation re-location.
type observation struct {
	card  segment.CardRegion
	label *ocr.Label
	crop  *image.RGBA
	// gone is set when a post-actuation rematch could not find the card.
	gone bool
}

// RunCycle executes one poll cycle. The returned report is valid even on
// error; the error is non-nil only for cycle-fatal conditions (capture
// failure or store unavailability), never for per-card trouble.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	log := e.logger.With(logging.String(logging.FieldCycleID, report.CycleID))
	log.Info("cycle started")

	if e.requestsURL != "" {
		if err := e.surface.Navigate(ctx, e.requestsURL); err != nil {
			return report, fmt.Errorf("navigate to request list: %w", err)
		}
	}

	page, err := e.surface.CapturePage(ctx)
	if err != nil {
		return report, fmt.Errorf("capture page: %w", err)
	}

	observations := e.observe(ctx, page, log, &report)
	report.Seen = len(observations)

	for i, obs := range observations {
		// Finish the current card before honoring cancellation so an
		// actuation is never left half-applied.
		if ctx.Err() != nil {
			log.Warn("cycle interrupted by shutdown", logging.Int("remaining", len(observations)-i))
			return report, ctx.Err()
		}
		if obs.gone {
			continue
		}
		if err := e.reconcileCard(ctx, obs, observations[i+1:], log, &report); err != nil {
			return report, err
		}
	}

	log.Info("cycle finished",
		logging.Int("seen", report.Seen),
		logging.Int("notified", report.Notified),
		logging.Int("executed", report.Executed),
		logging.Int("skipped", report.Skipped),
		logging.Int("errors", report.Errors))
	return report, nil
}

// observe segments the page and extracts an identity per card, dropping
// extraction failures and duplicate identities (first occurrence wins).
// Duplicate matching tolerates a truncated surname, so two slightly
// different reads of the same name collapse into one observation.
func (e *Engine) observe(ctx context.Context, page image.Image, log *slog.Logger, report *CycleReport) []*observation {
	cards := e.segmenter.Segment(page)

	var observations []*observation
	for _, card := range cards {
		crop := segment.Crop(page, card.Bounds)
		label, err := e.extractor.Extract(ctx, crop)
		if err != nil {
			log.Warn("label extraction failed, card skipped",
				logging.Int(logging.FieldCard, card.Index),
				logging.Error(err))
			report.Skipped++
			report.Errors++
			continue
		}
		if label == nil {
			log.Debug("no label on card, skipped", logging.Int(logging.FieldCard, card.Index))
			report.Skipped++
			continue
		}
		if prior := matchingObservation(observations, label.Text); prior != nil {
			log.Warn("duplicate identity in one cycle, later card skipped",
				logging.String(logging.FieldIdentity, label.Key),
				logging.Int("first_card", prior.card.Index),
				logging.Int(logging.FieldCard, card.Index))
			report.Skipped++
			continue
		}
		observations = append(observations, &observation{card: card, label: label, crop: crop})
	}
	return observations
}

// matchingObservation returns the earlier observation whose name refers to
// the same identity as name, or nil.
func matchingObservation(observations []*observation, name string) *observation {
	for _, obs := range observations {
		if textutil.NamesMatch(obs.label.Text, name) {
			return obs
		}
	}
	return nil
}

// reconcileCard applies the store's view of one identity to the screen.
// Per-card failures are absorbed into the report; only store I/O errors
// propagate and abort the cycle.
func (e *Engine) reconcileCard(ctx context.Context, obs *observation, remaining []*observation, log *slog.Logger, report *CycleReport) error {
	key := obs.label.Key
	cardLog := log.With(
		logging.String(logging.FieldIdentity, key),
		logging.Int(logging.FieldCard, obs.card.Index))

	record, err := e.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}

	switch {
	case record == nil:
		return e.registerNewRequest(ctx, obs, cardLog, report)

	case record.Status == decision.StatusPending:
		e.refreshBounds(ctx, record, obs.card.Bounds, cardLog)
		if !record.Notified {
			// The earlier notification never got through; try again.
			e.notifyNewRequest(ctx, obs, cardLog, report)
		}
		return nil

	case record.Actionable():
		return e.actuate(ctx, record, obs, remaining, cardLog, report)

	default:
		// EXECUTED records are terminal; the card lingering on screen is
		// just the platform lagging behind the click.
		cardLog.Debug("card already executed, nothing to do")
		return nil
	}
}

func (e *Engine) registerNewRequest(ctx context.Context, obs *observation, log *slog.Logger, report *CycleReport) error {
	bounds := obs.card.Bounds
	record, created, err := e.store.UpsertPending(ctx, obs.label.Key, obs.label.Text, &bounds)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	if !created {
		// The decision callback raced us and created the record first.
		log.Debug("record appeared concurrently", logging.String("status", string(record.Status)))
		return nil
	}

	log.Info("new request observed",
		logging.String("display_name", obs.label.Text),
		logging.Float64("confidence", obs.label.Confidence))

	if path, err := SaveSnapshot(e.snapshotDir, obs.label.Key, obs.crop, record.FirstSeenAt); err != nil {
		log.Warn("snapshot save failed", logging.Error(err))
	} else if path != "" {
		log.Debug("snapshot saved", logging.String("path", path))
	}

	e.notifyNewRequest(ctx, obs, log, report)
	return nil
}

func (e *Engine) notifyNewRequest(ctx context.Context, obs *observation, log *slog.Logger, report *CycleReport) {
	if err := e.notifier.NotifyNewRequest(ctx, obs.label.Text, obs.crop); err != nil {
		log.Warn("new request notification failed", logging.Error(err))
		report.Errors++
		return
	}
	if err := e.store.MarkNotified(ctx, obs.label.Key); err != nil {
		log.Warn("mark notified failed", logging.Error(err))
		report.Errors++
		return
	}
	report.Notified++
}

// actuate clicks the control matching the record's decision and advances
// the record to EXECUTED. Click failure leaves the record untouched for a
// retry next cycle.
func (e *Engine) actuate(ctx context.Context, record *decision.Record, obs *observation, remaining []*observation, log *slog.Logger, report *CycleReport) error {
	verdict := record.Decision()
	target := obs.card.ApproveCenter()
	if verdict == decision.DecisionDecline {
		target = obs.card.DeclineCenter()
	}

	log.Info("actuating decision",
		logging.String("decision", string(verdict)),
		logging.Int("x", target.X),
		logging.Int("y", target.Y))

	if err := e.surface.Click(ctx, target); err != nil {
		log.Error("actuation failed, will retry next cycle", logging.Error(err))
		report.Errors++
		return nil
	}

	if _, err := e.store.MarkExecuted(ctx, record.IdentityKey); err != nil {
		if errors.Is(err, decision.ErrInvalidTransition) {
			// A lost-update bug, not an I/O problem. Surface it loudly but
			// keep the cycle going.
			log.Error("invalid transition after actuation", logging.Error(err))
			report.Errors++
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	report.Executed++

	if err := e.notifier.NotifyExecuted(ctx, record.DisplayName, string(verdict)); err != nil {
		log.Warn("executed notification failed", logging.Error(err))
	}

	if len(remaining) > 0 {
		e.relocateAfterReflow(ctx, remaining, log)
	}
	return nil
}

// relocateAfterReflow re-captures the page after a click and re-locates
// every not-yet-processed card by template match. Cards that no longer
// match were consumed by the reflow and are marked gone, which is the
// expected outcome rather than an error.
func (e *Engine) relocateAfterReflow(ctx context.Context, remaining []*observation, log *slog.Logger) {
	screen, err := e.surface.CapturePage(ctx)
	if err != nil {
		// Without a fresh capture the old coordinates are unsafe; skip the
		// rest of this cycle's cards and let the next cycle see them.
		log.Warn("re-capture after actuation failed, deferring remaining cards", logging.Error(err))
		for _, obs := range remaining {
			obs.gone = true
		}
		return
	}

	for _, obs := range remaining {
		match := e.segmenter.Reacquire(screen, obs.crop)
		if !match.Found {
			log.Debug("card not re-acquired after reflow",
				logging.String(logging.FieldIdentity, obs.label.Key),
				logging.Float64("score", match.Score))
			obs.gone = true
			continue
		}
		delta := match.Location.Sub(obs.card.Bounds.Min)
		obs.card.Bounds = obs.card.Bounds.Add(delta)
		obs.card.ApproveControl = obs.card.ApproveControl.Add(delta)
		obs.card.DeclineControl = obs.card.DeclineControl.Add(delta)
	}
}

func (e *Engine) refreshBounds(ctx context.Context, record *decision.Record, bounds image.Rectangle, log *slog.Logger) {
	if record.CardBounds != nil && *record.CardBounds == bounds {
		return
	}
	if err := e.store.UpdateCardBounds(ctx, record.IdentityKey, bounds); err != nil {
		log.Warn("card bounds update failed", logging.Error(err))
	}
}
