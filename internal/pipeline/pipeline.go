// Package pipeline composes dedupe, qualification, contact resolution,
// ledger logging and notification into the per-batch processing routine.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/shortsale-cli/internal/config"
	"github.com/sells-group/shortsale-cli/internal/ledger"
	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/internal/notify"
)

// SeenStore is the durable set of already-processed listing IDs.
type SeenStore interface {
	HasSeen(ctx context.Context, id string) (bool, error)
	// MarkSeenIfNew atomically claims the id. Only one caller across all
	// processes observes true for a given id.
	MarkSeenIfNew(ctx context.Context, id string) (bool, error)
	UnmarkSeen(ctx context.Context, id string) error
}

// Qualifier decides whether a listing description is an actionable lead.
type Qualifier interface {
	Qualifies(ctx context.Context, listingID, description string) bool
}

// Resolver discovers contact details for a listing's agent.
type Resolver interface {
	Resolve(ctx context.Context, agent, address, broker string) model.Contact
}

// Pipeline runs the per-listing state machine over a batch.
type Pipeline struct {
	seen     SeenStore
	filter   Qualifier
	resolver Resolver
	ledger   ledger.Ledger
	notifier notify.Notifier

	maxConcurrent int
	seenPolicy    string
	contactField  string

	nowFunc func() time.Time
	newID   func() string
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithMaxConcurrent bounds how many listings are processed in parallel.
func WithMaxConcurrent(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxConcurrent = n
		}
	}
}

// WithContactField names the contact field the outbound channel requires:
// "phone" for SMS, "email" for email. A resolved contact missing that field
// is unusable. Unset means any non-empty contact counts.
func WithContactField(field string) Option {
	return func(p *Pipeline) {
		p.contactField = field
	}
}

// WithSeenPolicy selects how notify failures interact with the seen-set.
func WithSeenPolicy(policy string) Option {
	return func(p *Pipeline) {
		if policy != "" {
			p.seenPolicy = policy
		}
	}
}

// New creates a pipeline over the given components.
func New(seen SeenStore, filter Qualifier, resolver Resolver, lg ledger.Ledger, notifier notify.Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		seen:          seen,
		filter:        filter,
		resolver:      resolver,
		ledger:        lg,
		notifier:      notifier,
		maxConcurrent: 4,
		seenPolicy:    config.SeenPolicyBestEffortOnce,
		nowFunc:       time.Now,
		newID:         uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes one batch. Per-listing failures are absorbed: one bad
// listing never aborts the rest. The returned error reflects only
// context cancellation.
func (p *Pipeline) Run(ctx context.Context, listings []model.Listing) (model.BatchStats, error) {
	stats := model.BatchStats{Received: len(listings)}
	if len(listings) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	record := func(o model.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case model.OutcomeDuplicate:
			stats.Duplicates++
		case model.OutcomeDisqualified:
			stats.Disqualified++
		case model.OutcomeUncontactable:
			stats.Uncontactable++
		case model.OutcomeNotified:
			stats.Notified++
		case model.OutcomeNotifyFailed:
			stats.NotifyFailed++
		case model.OutcomeError:
			stats.Errors++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for _, listing := range listings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := p.processOne(gctx, listing)
			record(outcome)
			zap.L().Debug("listing processed",
				zap.String("listing_id", listing.ID),
				zap.String("outcome", string(outcome)))
			return nil
		})
	}

	err := g.Wait()

	zap.L().Info("batch complete",
		zap.Int("received", stats.Received),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("disqualified", stats.Disqualified),
		zap.Int("uncontactable", stats.Uncontactable),
		zap.Int("notified", stats.Notified),
		zap.Int("notify_failed", stats.NotifyFailed),
		zap.Int("errors", stats.Errors))

	return stats, err
}

// processOne drives a single listing to a terminal state.
func (p *Pipeline) processOne(ctx context.Context, l model.Listing) model.Outcome {
	if l.ID == "" {
		zap.L().Warn("listing without id skipped")
		return model.OutcomeError
	}

	seen, err := p.seen.HasSeen(ctx, l.ID)
	if err != nil {
		zap.L().Error("seen-set read failed",
			zap.String("listing_id", l.ID),
			zap.Error(err))
		return model.OutcomeError
	}
	if seen {
		return model.OutcomeDuplicate
	}

	if !p.filter.Qualifies(ctx, l.ID, l.Description) {
		// A rejection is still a processed listing: claim it so no later
		// batch reclassifies it.
		claimed, markErr := p.seen.MarkSeenIfNew(ctx, l.ID)
		if markErr != nil {
			zap.L().Error("mark seen failed after disqualification",
				zap.String("listing_id", l.ID),
				zap.Error(markErr))
			return model.OutcomeError
		}
		if !claimed {
			return model.OutcomeDuplicate
		}
		return model.OutcomeDisqualified
	}

	found := p.resolver.Resolve(ctx, l.AgentName, l.Address, l.BrokerName)
	if !p.usable(found) {
		// A contact the channel cannot reach is as terminal as none at
		// all: claim the id so later batches skip it as a duplicate.
		claimed, markErr := p.seen.MarkSeenIfNew(ctx, l.ID)
		if markErr != nil {
			zap.L().Error("mark seen failed after lookup",
				zap.String("listing_id", l.ID),
				zap.Error(markErr))
			return model.OutcomeError
		}
		if !claimed {
			return model.OutcomeDuplicate
		}
		return model.OutcomeUncontactable
	}

	// Claim before any side effect so a concurrent run cannot double-notify.
	claimed, err := p.seen.MarkSeenIfNew(ctx, l.ID)
	if err != nil {
		zap.L().Error("mark seen failed",
			zap.String("listing_id", l.ID),
			zap.Error(err))
		return model.OutcomeError
	}
	if !claimed {
		return model.OutcomeDuplicate
	}

	lead := model.Lead{Listing: l, Contact: found}

	// Ledger first, then notify. A persistence failure releases the claim
	// and stops this listing here, so the next batch retries the whole
	// log-then-notify sequence.
	row := model.LedgerRow{
		ID:        p.newID(),
		Timestamp: p.nowFunc(),
		Address:   l.Address,
		Phone:     found.Phone,
		Email:     found.Email,
		AgentName: l.AgentName,
		DetailURL: l.DetailURL,
	}
	if err := p.ledger.Append(ctx, row); err != nil {
		zap.L().Error("ledger append failed",
			zap.String("listing_id", l.ID),
			zap.Error(err))
		if unmarkErr := p.seen.UnmarkSeen(ctx, l.ID); unmarkErr != nil {
			zap.L().Error("unmark seen failed",
				zap.String("listing_id", l.ID),
				zap.Error(unmarkErr))
		}
		return model.OutcomeError
	}

	if err := p.notifier.Notify(ctx, lead); err != nil {
		zap.L().Warn("notify failed",
			zap.String("listing_id", l.ID),
			zap.Error(err))
		if p.seenPolicy == config.SeenPolicyRetryUntilNotified {
			if unmarkErr := p.seen.UnmarkSeen(ctx, l.ID); unmarkErr != nil {
				zap.L().Error("unmark seen failed",
					zap.String("listing_id", l.ID),
					zap.Error(unmarkErr))
			}
		}
		return model.OutcomeNotifyFailed
	}

	return model.OutcomeNotified
}

// usable reports whether the contact carries the field the channel needs.
func (p *Pipeline) usable(c model.Contact) bool {
	switch p.contactField {
	case "phone":
		return c.Phone != ""
	case "email":
		return c.Email != ""
	default:
		return !c.Empty()
	}
}
