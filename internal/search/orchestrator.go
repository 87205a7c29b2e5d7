// Package search implements the donor-search engine: the round orchestrator
// that expands geohash rings around a seeker and notifies eligible donors,
// and the initiator that starts or restarts a search when a donation request
// is created or reopened.
//
// A search runs as a sequence of short, stateless rounds. Each round is one
// queue message; intermediate progress (ring level, queued cells, carry-over
// target, retry counters) travels in the message, while the persistent
// DonorSearchRecord holds the status and the notified-donor ledger used for
// de-duplication. Rounds may be redelivered or run out of order, so every
// round re-reads the record and filters donors against its ledger.
//
// Observability: ProcessRound and HandleEvent are OpenTelemetry-instrumented
// and counted in Prometheus by outcome.
package search

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/geo"
	"github.com/tbourn/donor-search/internal/pacing"
)

// Orchestrator runs search rounds.
type Orchestrator struct {
	Store    RecordStore
	Donors   DonorFinder
	Queue    Queue
	Notifier Dispatcher
	Cfg      config.SearchConfig

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(store RecordStore, donors DonorFinder, q Queue, n Dispatcher, cfg config.SearchConfig) *Orchestrator {
	return &Orchestrator{Store: store, Donors: donors, Queue: q, Notifier: n, Cfg: cfg, Now: time.Now}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) limits() geo.RingLimits {
	return geo.RingLimits{MaxLevel: o.Cfg.MaxNeighborSearchLevel, MaxQueued: o.Cfg.MaxGeohashesPerExecution}
}

// ProcessRound executes the round carried by body. handle identifies the
// leased queue message and is used to defer it. It returns nil when the
// round finished (including silent terminations), an *IntentionalError when
// the round was deferred, and any other error when the message should be
// redelivered.
func (o *Orchestrator) ProcessRound(ctx context.Context, handle string, body []byte) (err error) {
	start := time.Now()
	outcome := OutcomeError

	tr := otel.Tracer("search/Orchestrator")
	ctx, span := tr.Start(ctx, "ProcessRound")
	defer func() {
		roundsTotal.WithLabelValues(outcome).Inc()
		roundDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("round.outcome", outcome))
		if err != nil && !IsIntentional(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	msg, err := ParseRoundMessage(body)
	if err != nil {
		return err
	}
	key := msg.Key()
	span.SetAttributes(
		attribute.String("seeker.id", key.SeekerID),
		attribute.String("request.id", key.RequestID),
		attribute.Int("round.level", msg.CurrentNeighborSearchLevel),
	)
	lg := log.With().
		Str("seeker_id", key.SeekerID).
		Str("request_id", key.RequestID).
		Int64("created_at", key.CreatedAt).
		Logger()

	rec, err := o.Store.GetSearchRecord(ctx, key)
	if err != nil {
		return fmt.Errorf("load search record: %w", err)
	}
	if rec == nil || rec.Status == domain.SearchCompleted {
		outcome = OutcomeStale
		lg.Debug().Bool("record_found", rec != nil).Msg("round dropped: no active search")
		return nil
	}

	now := o.now()
	if wake, ok := msg.WakeTime(); ok && wake.After(now) {
		wait := wake.Sub(now)
		if wait > o.Cfg.MaxVisibilityDelay {
			wait = o.Cfg.MaxVisibilityDelay
		}
		if err := o.Queue.ExtendVisibility(ctx, handle, wait); err != nil {
			return fmt.Errorf("extend visibility: %w", err)
		}
		outcome = OutcomeDeferred
		return intentional("round deferred until %s (%s)", wake.UTC().Format(time.RFC3339), wait.Round(time.Second))
	}

	req, err := o.Store.GetDonationRequest(ctx, key)
	if err != nil {
		return fmt.Errorf("load donation request: %w", err)
	}
	if req == nil || !req.Status.Active() {
		outcome = OutcomeInactive
		lg.Info().Msg("round dropped: request no longer pending")
		return nil
	}
	if !req.DonationDateTime.IsZero() && now.After(req.DonationDateTime) {
		rec.Status = domain.SearchCompleted
		if err := o.Store.SaveSearchRecord(ctx, rec); err != nil {
			return fmt.Errorf("save search record: %w", err)
		}
		outcome = OutcomeExpired
		lg.Info().Time("donation_at", req.DonationDateTime).Msg("search completed: donation time passed")
		return nil
	}

	accepted, err := o.Store.CountAcceptedDonors(ctx, key)
	if err != nil {
		return fmt.Errorf("count accepted donors: %w", err)
	}
	remaining := rec.BloodQuantity - accepted
	if remaining <= 0 {
		outcome = OutcomeSatisfied
		lg.Info().Int("accepted", accepted).Msg("round dropped: request satisfied")
		return nil
	}

	total := pacing.DonorsToNotify(remaining, rec.UrgencyLevel)
	if p := msg.PotentialDonorsLeftToNotify; p != nil && *p > 0 {
		total = *p
	}

	ledger := rec.Notified().Merge(msg.NotifiedEligibleDonors)
	center := geo.Truncate(rec.Geohash, o.Cfg.NeighborGeohashLength)
	queue, level := geo.ExpandRing(center, msg.CurrentNeighborSearchLevel, msg.RemainingGeohashesToProcess, o.limits())

	picked, queue, err := o.collect(ctx, rec, ledger, queue, total)
	if err != nil {
		return err
	}

	o.dispatch(ctx, lg, rec, picked)

	rec.SetNotified(ledger.Merge(picked.ledger))
	next := &domain.SearchRoundMessage{
		SeekerID:                    key.SeekerID,
		RequestID:                   key.RequestID,
		CreatedAt:                   key.CreatedAt,
		CurrentNeighborSearchLevel:  level,
		RemainingGeohashesToProcess: queue,
		NotifiedEligibleDonors:      picked.ledger,
		RetryCount:                  msg.RetryCount,
		ReinstatedRetryCount:        msg.ReinstatedRetryCount,
	}

	shortfall := total - len(picked.order)
	exhausted := geo.Exhausted(level, queue, o.limits())
	bounds := o.Cfg.For(string(rec.UrgencyLevel))

	var delay time.Duration
	var wakeAt bool
	switch {
	case shortfall > 0 && !exhausted:
		outcome = OutcomeContinue
		next.PotentialDonorsLeftToNotify = &shortfall
		delay = o.Cfg.ContinueDelay

	case !exhausted && msg.RetryCount < o.Cfg.MaxRetryCount:
		outcome = OutcomeRetry
		next.RetryCount = msg.RetryCount + 1
		delay = pacing.DelayPeriod(remaining, rec.DonationDateTime, now, bounds)

	case msg.ReinstatedRetryCount < o.Cfg.MaxReinstatedRetryCount:
		outcome = OutcomeReinstate
		next.CurrentNeighborSearchLevel = 0
		next.RemainingGeohashesToProcess = []string{center}
		next.RetryCount = 0
		next.ReinstatedRetryCount = msg.ReinstatedRetryCount + 1
		delay = pacing.ReinstateDelay(remaining, rec.DonationDateTime, now, bounds,
			o.Cfg.ReinstateMultiplier, o.Cfg.ReinstateMaxDelay)
		wakeAt = true

	default:
		outcome = OutcomeComplete
		rec.Status = domain.SearchCompleted
	}

	if err := o.Store.SaveSearchRecord(ctx, rec); err != nil {
		outcome = OutcomeError
		return fmt.Errorf("save search record: %w", err)
	}
	if outcome != OutcomeComplete && rec.Status == domain.SearchCompleted {
		// Completed by another writer while this round ran.
		outcome = OutcomeStale
		lg.Info().Int("notified", len(picked.order)).Msg("round dropped: search completed concurrently")
		return nil
	}

	if outcome != OutcomeComplete {
		if err := o.schedule(ctx, next, now, delay, wakeAt); err != nil {
			outcome = OutcomeError
			return err
		}
	}

	lg.Info().
		Str("outcome", outcome).
		Int("level", level).
		Int("queued", len(queue)).
		Int("notified", len(picked.order)).
		Int("target", total).
		Int("retry", next.RetryCount).
		Int("reinstated", next.ReinstatedRetryCount).
		Dur("delay", delay).
		Msg("search round done")
	return nil
}

// schedule enqueues next to run after delay. Delays beyond the queue's
// native cap, and every reinstatement, are expressed as a targeted execution
// time so the receiving round defers itself until then.
func (o *Orchestrator) schedule(ctx context.Context, next *domain.SearchRoundMessage, now time.Time, delay time.Duration, wakeAt bool) error {
	enqueueDelay := delay
	if wakeAt || delay > o.Cfg.MaxEnqueueDelay {
		at := now.Add(delay).Unix()
		next.TargetedExecutionTime = &at
		if enqueueDelay > o.Cfg.MaxEnqueueDelay {
			enqueueDelay = o.Cfg.MaxEnqueueDelay
		}
	}
	body, err := EncodeRoundMessage(next)
	if err != nil {
		return operational(err, "encode round message")
	}
	if _, err := o.Queue.Enqueue(ctx, body, enqueueDelay); err != nil {
		return fmt.Errorf("enqueue round: %w", err)
	}
	return nil
}

// selection is the set of donors picked in one round, in pick order.
type selection struct {
	ledger domain.Ledger
	order  []string
}

// collect walks queued cells until target donors are picked or the per-round
// cell cap is reached, and returns the picks with the cells still queued. A
// cell abandoned mid-way because the target was reached is put back at the
// head of the queue; re-querying it later only re-derives donors that the
// ledger then filters out.
func (o *Orchestrator) collect(ctx context.Context, rec *domain.DonorSearchRecord, ledger domain.Ledger, queue []string, target int) (selection, []string, error) {
	sel := selection{ledger: domain.Ledger{}}
	queue = append([]string(nil), queue...)

	for processed := 0; len(queue) > 0 && processed < o.Cfg.MaxGeohashesPerRound && len(sel.order) < target; processed++ {
		cell := queue[0]
		queue = queue[1:]

		donors, err := o.Donors.DonorsFor(ctx, cell, rec.City, rec.RequestedBloodGroup)
		if err != nil {
			return sel, nil, fmt.Errorf("donors for %s: %w", cell, err)
		}

		for _, d := range donors {
			if d.DonorID == rec.SeekerID {
				continue
			}
			if _, done := ledger[d.DonorID]; done {
				continue
			}
			info := domain.EligibleDonorInfo{LocationID: d.LocationID, Distance: roundKm(geo.Distance(rec.Geohash, d.Geohash))}

			if prev, dup := sel.ledger[d.DonorID]; dup {
				if o.prefer(info.Distance, prev.Distance) {
					sel.ledger[d.DonorID] = info
				}
				continue
			}
			if len(sel.order) >= target {
				queue = append([]string{cell}, queue...)
				break
			}
			sel.ledger[d.DonorID] = info
			sel.order = append(sel.order, d.DonorID)
		}
	}
	return sel, queue, nil
}

// prefer reports whether a newly computed distance should replace the one
// already recorded for a donor reached through several cells in one round.
func (o *Orchestrator) prefer(candidate, current float64) bool {
	if o.Cfg.DistanceTieBreak == "nearest" {
		return candidate < current
	}
	return candidate > current
}

// dispatch sends one notification per picked donor. Failures are logged and
// counted; delivery is the dispatcher's concern.
func (o *Orchestrator) dispatch(ctx context.Context, lg zerolog.Logger, rec *domain.DonorSearchRecord, sel selection) {
	tr := otel.Tracer("search/Orchestrator")
	ctx, span := tr.Start(ctx, "dispatch", trace.WithAttributes(attribute.Int("donors", len(sel.order))))
	defer span.End()

	for _, id := range sel.order {
		n := renderNotification(rec, id, sel.ledger[id])
		if err := o.Notifier.Send(ctx, n); err != nil {
			dispatchFailures.Inc()
			lg.Error().Err(err).Str("donor_id", id).Msg("notification dispatch failed")
			continue
		}
		donorsNotified.Inc()
	}
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
