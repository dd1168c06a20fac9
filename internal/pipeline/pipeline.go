// Package pipeline owns the per-message processing lifecycle: filter,
// extract, deduplicate, format, dispatch. One worker runs per configured
// source; independent sources proceed concurrently while messages within a
// source are processed one at a time in arrival order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/dedup"
	"github.com/quantfeed/signal-scout/internal/extractor"
	"github.com/quantfeed/signal-scout/internal/filter"
	"github.com/quantfeed/signal-scout/internal/format"
	"github.com/quantfeed/signal-scout/internal/models"
	"github.com/quantfeed/signal-scout/internal/notify"
	"github.com/quantfeed/signal-scout/internal/source"
	"golang.org/x/sync/errgroup"
)

// Per-message terminal outcomes of one pipeline pass.
const (
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
	OutcomeOK        = models.OutcomeOK
	OutcomeFailed    = models.OutcomeFailed
)

// Extractor turns a raw message into a trade signal.
type Extractor interface {
	Extract(ctx context.Context, msg models.RawMessage) (models.TradeSignal, error)
}

// Dispatcher delivers a formatted alert to the active notification channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.NotificationPayload) error
}

// Quoter supplies an optional current-price string for an instrument.
type Quoter interface {
	CurrentPrice(ctx context.Context, instrument string) string
}

// SignalSink persists extracted signals as an audit trail.
type SignalSink interface {
	Save(rec *models.SignalRecord) error
}

// Pipeline wires the processing stages together and runs one worker per source.
type Pipeline struct {
	cfg           config.PipelineConfig
	chartAnalysis bool

	filter     *filter.Filter
	extractor  Extractor
	store      dedup.Store
	formatter  *format.Formatter
	dispatcher Dispatcher
	quotes     Quoter
	signals    SignalSink
	logger     *log.Logger

	received   atomic.Int64
	rejected   atomic.Int64
	duplicates atomic.Int64
	extracted  atomic.Int64
	dispatched atomic.Int64
	failed     atomic.Int64
}

// New creates a Pipeline. quotes and signals may be nil to disable price
// enrichment and the signal audit trail respectively.
func New(
	cfg config.PipelineConfig,
	chartAnalysis bool,
	f *filter.Filter,
	ex Extractor,
	store dedup.Store,
	fm *format.Formatter,
	d Dispatcher,
	quotes Quoter,
	signals SignalSink,
	logger *log.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		chartAnalysis: chartAnalysis,
		filter:        f,
		extractor:     ex,
		store:         store,
		formatter:     fm,
		dispatcher:    d,
		quotes:        quotes,
		signals:       signals,
		logger:        logger,
	}
}

// Run starts one worker per source plus the stats reporter, blocking until
// ctx is cancelled or a worker hits a fatal store failure.
func (p *Pipeline) Run(ctx context.Context, sources []source.Source) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range sources {
		w := newWorker(p, src)
		g.Go(func() error { return w.ingest(gctx) })
		g.Go(func() error { return w.drain(gctx) })
	}

	g.Go(func() error { return p.reportStats(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (p *Pipeline) reportStats(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.logger.Printf("pipeline stats: received=%d rejected=%d duplicates=%d extracted=%d dispatched=%d failed=%d",
				p.received.Load(), p.rejected.Load(), p.duplicates.Load(),
				p.extracted.Load(), p.dispatched.Load(), p.failed.Load())
		}
	}
}

// worker processes one source's stream: ingest feeds the backlog queue so a
// slow dispatch never blocks message arrival; drain consumes it one message
// at a time.
type worker struct {
	p           *Pipeline
	src         source.Source
	queue       chan models.RawMessage
	lastExtract time.Time
}

func newWorker(p *Pipeline, src source.Source) *worker {
	return &worker{
		p:     p,
		src:   src,
		queue: make(chan models.RawMessage, p.cfg.QueueSize),
	}
}

func (w *worker) ingest(ctx context.Context) error {
	emit := func(msg models.RawMessage) {
		select {
		case w.queue <- msg:
		case <-ctx.Done():
		}
	}
	err := w.src.Run(ctx, emit)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("source %s: %w", w.src.Name(), err)
	}
	return err
}

func (w *worker) drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-w.queue:
			if _, err := w.process(ctx, msg); err != nil {
				// Durable state could not be written: halting is safer than
				// risking duplicate or lost notifications.
				return fmt.Errorf("source %s halted: %w", w.src.Name(), err)
			}
		}
	}
}

// process runs the full state machine for one message and returns its
// terminal outcome. The returned error is non-nil only for fatal store
// failures; every per-message failure is absorbed here.
func (w *worker) process(ctx context.Context, msg models.RawMessage) (string, error) {
	p := w.p
	p.received.Add(1)
	trace := uuid.NewString()[:8]

	// Filtered{candidate|rejected}
	verdict := p.filter.Classify(msg.Text)
	if verdict == filter.Rejected && msg.HasImage() && p.chartAnalysis && !p.filter.Excluded(msg.Text) {
		// Chart-only posts rarely carry keywords; the chart itself is the signal.
		verdict = filter.Candidate
	}
	if verdict == filter.Rejected {
		p.rejected.Add(1)
		return OutcomeRejected, nil
	}

	// Deduped{new|duplicate} - checked before extraction so a redelivered
	// message never pays a second inference call.
	seen, err := p.store.Seen(ctx, msg.ChannelID, msg.MessageID)
	if err != nil {
		return OutcomeError, err
	}
	if seen {
		p.duplicates.Add(1)
		p.logger.Printf("[%s] duplicate %s/%s from %s, skipping", trace, msg.ChannelID, msg.MessageID, msg.SourceID)
		return OutcomeDuplicate, nil
	}

	// Extracted{ok|error}
	sig, extErr := w.extract(ctx, msg, trace)
	if extErr != nil {
		if errors.Is(extErr, extractor.ErrMalformedResponse) || errors.Is(extErr, extractor.ErrNoSignal) {
			// Terminal for this message; record the fingerprint so the
			// inference cost is never paid again.
			outcome := models.OutcomeMalformed
			if errors.Is(extErr, extractor.ErrNoSignal) {
				outcome = models.OutcomeInvalid
			}
			p.logger.Printf("[%s] extraction of %s/%s gave no usable signal: %v", trace, msg.ChannelID, msg.MessageID, extErr)
			if err := p.store.MarkSeen(ctx, msg.ChannelID, msg.MessageID, outcome); err != nil {
				return OutcomeError, err
			}
			return OutcomeError, nil
		}
		// Transient retries exhausted. No fingerprint: the cost was never
		// paid, so a platform redelivery may try again.
		p.logger.Printf("[%s] extraction of %s/%s failed after retries: %v", trace, msg.ChannelID, msg.MessageID, extErr)
		return OutcomeError, nil
	}
	p.extracted.Add(1)

	if p.signals != nil {
		if err := p.signals.Save(models.NewSignalRecord(msg, sig)); err != nil {
			// Audit trail only; the alert still goes out.
			p.logger.Printf("[%s] failed to persist signal record for %s/%s: %v", trace, msg.ChannelID, msg.MessageID, err)
		}
	}

	meta := format.Metadata{Channel: msg.ChannelID, Sender: msg.Sender}
	if p.quotes != nil {
		meta.CurrentPrice = p.quotes.CurrentPrice(ctx, sig.Instrument)
	}
	payload := p.formatter.Format(sig, meta)

	// Dispatched{ok|failed}
	outcome := OutcomeOK
	if dispErr := p.dispatcher.Dispatch(ctx, payload); dispErr != nil {
		if errors.Is(dispErr, context.Canceled) {
			// Shutdown mid-dispatch: leave no fingerprint so the message is
			// eligible again after restart.
			return OutcomeError, nil
		}
		outcome = OutcomeFailed
		p.failed.Add(1)
		p.logger.Printf("[%s] dispatch for %s/%s failed: %v (alert lost, continuing)", trace, msg.ChannelID, msg.MessageID, dispErr)
	} else {
		p.dispatched.Add(1)
		p.logger.Printf("[%s] dispatched %s %s alert for %s/%s", trace, sig.Instrument, sig.Direction, msg.ChannelID, msg.MessageID)
	}

	if err := p.store.MarkSeen(ctx, msg.ChannelID, msg.MessageID, outcome); err != nil {
		return OutcomeError, err
	}
	return outcome, nil
}

// extract applies the source rate limit, then calls the extractor with
// bounded retries on transient failures.
func (w *worker) extract(ctx context.Context, msg models.RawMessage, trace string) (models.TradeSignal, error) {
	p := w.p

	var sig models.TradeSignal
	var err error
	for attempt := 0; attempt <= p.cfg.MaxExtractionRetries; attempt++ {
		if attempt > 0 {
			p.logger.Printf("[%s] retrying extraction of %s/%s (attempt %d/%d)",
				trace, msg.ChannelID, msg.MessageID, attempt, p.cfg.MaxExtractionRetries)
			select {
			case <-ctx.Done():
				return models.TradeSignal{}, ctx.Err()
			case <-time.After(p.cfg.ExtractionRetryDelay):
			}
		}

		if err = w.rateLimit(ctx); err != nil {
			return models.TradeSignal{}, err
		}

		sig, err = p.extractor.Extract(ctx, msg)
		if err == nil || !extractor.IsTransient(err) {
			return sig, err
		}
	}
	return models.TradeSignal{}, err
}

// rateLimit enforces the minimum delay between consecutive inference calls
// for this source, regardless of message arrival rate.
func (w *worker) rateLimit(ctx context.Context) error {
	if w.p.cfg.RateLimitDelay <= 0 {
		return nil
	}
	wait := w.p.cfg.RateLimitDelay - time.Since(w.lastExtract)
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	w.lastExtract = time.Now()
	return nil
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Received   int64 `json:"received"`
	Rejected   int64 `json:"rejected"`
	Duplicates int64 `json:"duplicates"`
	Extracted  int64 `json:"extracted"`
	Dispatched int64 `json:"dispatched"`
	Failed     int64 `json:"failed"`
}

// Snapshot returns the current counter values.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		Received:   p.received.Load(),
		Rejected:   p.rejected.Load(),
		Duplicates: p.duplicates.Load(),
		Extracted:  p.extracted.Load(),
		Dispatched: p.dispatched.Load(),
		Failed:     p.failed.Load(),
	}
}

var _ Dispatcher = (*notify.Dispatcher)(nil)
