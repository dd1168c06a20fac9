package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/dedup"
	"github.com/quantfeed/signal-scout/internal/extractor"
	"github.com/quantfeed/signal-scout/internal/filter"
	"github.com/quantfeed/signal-scout/internal/format"
	"github.com/quantfeed/signal-scout/internal/models"
	"github.com/quantfeed/signal-scout/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeExtractor struct {
	mu      sync.Mutex
	calls   int
	signals []models.TradeSignal
	errs    []error
}

func (f *fakeExtractor) Extract(_ context.Context, _ models.RawMessage) (models.TradeSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	var sig models.TradeSignal
	var err error
	if i < len(f.signals) {
		sig = f.signals[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return sig, err
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    int
	payloads []models.NotificationPayload
	errs     []error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, payload models.NotificationPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.payloads = append(f.payloads, payload)
	if i < len(f.errs) {
		return f.errs[i]
	}
	return nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memorySink struct {
	mu      sync.Mutex
	records []*models.SignalRecord
}

func (m *memorySink) Save(rec *models.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func testStore(t *testing.T) dedup.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Fingerprint{}))
	return dedup.NewSQLiteStore(db)
}

func testFilter() *filter.Filter {
	return filter.New(config.FilterConfig{
		RequiredKeywords: []string{"buy", "sell", "entry", "signal"},
		ExcludedKeywords: []string{"giveaway", "click here"},
	})
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxExtractionRetries: 2,
		ExtractionRetryDelay: time.Millisecond,
		RateLimitDelay:       0,
		QueueSize:            8,
		StatsInterval:        time.Minute,
	}
}

func testPipeline(t *testing.T, ex Extractor, d Dispatcher) (*Pipeline, dedup.Store) {
	t.Helper()
	store := testStore(t)
	p := New(
		testPipelineConfig(),
		false,
		testFilter(),
		ex,
		store,
		format.New(config.NotificationConfig{}),
		d,
		nil,
		&memorySink{},
		log.New(io.Discard, "", 0),
	)
	return p, store
}

func signalMsg(id string) models.RawMessage {
	return models.RawMessage{
		SourceID:   "test",
		ChannelID:  "chan-1",
		MessageID:  id,
		Sender:     "Gold Signals VIP",
		Text:       "BUY XAUUSD entry 2358.5 SL 2349 TP 2375",
		ReceivedAt: time.Now(),
	}
}

func xauSignal() models.TradeSignal {
	entry, sl, tp := 2358.5, 2349.0, 2375.0
	return models.TradeSignal{
		Instrument: "XAUUSD",
		Direction:  models.DirectionBuy,
		EntryPrice: &entry,
		StopLoss:   &sl,
		TakeProfit: &tp,
		Confidence: 0.9,
	}
}

func TestProcessSignalMessage(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{signals: []models.TradeSignal{xauSignal()}}
	d := &fakeDispatcher{}
	p, store := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 1, ex.callCount())
	require.Equal(t, 1, d.callCount())
	assert.Contains(t, d.payloads[0].Body, "XAUUSD")
	assert.Contains(t, d.payloads[0].Body, "2358.5")

	seen, err := store.Seen(ctx, "chan-1", "msg-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestProcessDuplicateSkipsExtraction(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{signals: []models.TradeSignal{xauSignal(), xauSignal()}}
	d := &fakeDispatcher{}
	p, _ := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeOK, outcome)

	outcome, err = w.process(ctx, signalMsg("msg-1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, ex.callCount(), "duplicate must not reach the extractor")
	assert.Equal(t, 1, d.callCount(), "duplicate must not be dispatched")
}

func TestProcessRejectedLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{}
	d := &fakeDispatcher{}
	p, store := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	msg := signalMsg("msg-noise")
	msg.Text = "Good morning traders, have a great weekend!"
	outcome, err := w.process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Zero(t, ex.callCount())
	assert.Zero(t, d.callCount())

	// Rejected messages get no fingerprint; a later edit may still qualify.
	seen, err := store.Seen(ctx, "chan-1", "msg-noise")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestProcessMalformedResponseRecordsFingerprint(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{errs: []error{extractor.ErrMalformedResponse}}
	d := &fakeDispatcher{}
	p, store := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-bad"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, outcome)
	assert.Zero(t, d.callCount())
	assert.Equal(t, 1, ex.callCount(), "malformed output is not retried")

	seen, err := store.Seen(ctx, "chan-1", "msg-bad")
	require.NoError(t, err)
	assert.True(t, seen, "inference cost was paid, message must not be reprocessed")
}

func TestProcessNoSignalRecordsFingerprint(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{errs: []error{extractor.ErrNoSignal}}
	d := &fakeDispatcher{}
	p, store := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-partial"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, outcome)
	assert.Zero(t, d.callCount())

	seen, err := store.Seen(ctx, "chan-1", "msg-partial")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestProcessTransientRetriesThenGivesUp(t *testing.T) {
	ctx := context.Background()
	transient := extractor.Transient("generate", errors.New("503 service unavailable"))
	ex := &fakeExtractor{errs: []error{transient, transient, transient}}
	d := &fakeDispatcher{}
	p, store := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-flaky"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeError, outcome)
	assert.Equal(t, 3, ex.callCount(), "initial attempt plus two retries")
	assert.Zero(t, d.callCount())

	// No fingerprint: a redelivery is allowed to try again.
	seen, err := store.Seen(ctx, "chan-1", "msg-flaky")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestProcessTransientThenSuccess(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{
		signals: []models.TradeSignal{{}, xauSignal()},
		errs:    []error{extractor.Transient("generate", errors.New("429")), nil},
	}
	d := &fakeDispatcher{}
	p, _ := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-retry"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 2, ex.callCount())
	assert.Equal(t, 1, d.callCount())
}

func TestProcessDispatchFailureRecordsFailedOutcome(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{signals: []models.TradeSignal{xauSignal(), xauSignal()}}
	d := &fakeDispatcher{errs: []error{errors.New("delivery exhausted"), nil}}
	p, store := testPipeline(t, ex, d)
	w := newWorker(p, nil)

	outcome, err := w.process(ctx, signalMsg("msg-lost"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	seen, err := store.Seen(ctx, "chan-1", "msg-lost")
	require.NoError(t, err)
	assert.True(t, seen, "failed dispatch still consumes the message")

	// The pipeline keeps going: the next message is unaffected.
	outcome, err = w.process(ctx, signalMsg("msg-next"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
}

func TestProcessChartOnlyMessage(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{signals: []models.TradeSignal{xauSignal()}}
	d := &fakeDispatcher{}
	store := testStore(t)
	p := New(
		testPipelineConfig(),
		true, // chart analysis on
		testFilter(),
		ex,
		store,
		format.New(config.NotificationConfig{}),
		d,
		nil,
		nil,
		log.New(io.Discard, "", 0),
	)
	w := newWorker(p, nil)

	msg := signalMsg("msg-chart")
	msg.Text = ""
	msg.ImageData = []byte{0xff, 0xd8}
	outcome, err := w.process(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, 1, ex.callCount())
}

func TestProcessPersistsSignalRecord(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExtractor{signals: []models.TradeSignal{xauSignal()}}
	d := &fakeDispatcher{}
	sink := &memorySink{}
	store := testStore(t)
	p := New(
		testPipelineConfig(),
		false,
		testFilter(),
		ex,
		store,
		format.New(config.NotificationConfig{}),
		d,
		nil,
		sink,
		log.New(io.Discard, "", 0),
	)
	w := newWorker(p, nil)

	_, err := w.process(ctx, signalMsg("msg-audit"))
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "XAUUSD", sink.records[0].Instrument)
	assert.Equal(t, "msg-audit", sink.records[0].MessageID)
	assert.Equal(t, "chan-1", sink.records[0].ChannelID)
}

type scriptedSource struct {
	name string
	msgs []models.RawMessage
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Run(ctx context.Context, emit source.Emit) error {
	for _, msg := range s.msgs {
		emit(msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunProcessesSourceStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ex := &fakeExtractor{signals: []models.TradeSignal{xauSignal(), xauSignal()}}
	d := &fakeDispatcher{}
	p, _ := testPipeline(t, ex, d)

	noise := signalMsg("msg-2")
	noise.Text = "morning everyone"
	src := &scriptedSource{name: "test", msgs: []models.RawMessage{
		signalMsg("msg-1"),
		noise,
		signalMsg("msg-1"), // duplicate
		signalMsg("msg-3"),
	}}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, []source.Source{src}) }()

	require.Eventually(t, func() bool {
		s := p.Snapshot()
		return s.Received == 4 && s.Dispatched == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}

	s := p.Snapshot()
	assert.EqualValues(t, 1, s.Rejected)
	assert.EqualValues(t, 1, s.Duplicates)
	assert.EqualValues(t, 2, s.Extracted)
}
