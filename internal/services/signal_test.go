package services

import (
	"path/filepath"
	"testing"

	"github.com/quantfeed/signal-scout/internal/database"
	"github.com/quantfeed/signal-scout/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService(t *testing.T) *SignalService {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "signals.db")
	require.NoError(t, database.InitDatabase(dsn))
	return NewSignalService()
}

func record(channel, message, instrument, direction string) *models.SignalRecord {
	entry := 2358.5
	return &models.SignalRecord{
		SourceID:   "telegram",
		ChannelID:  channel,
		MessageID:  message,
		Instrument: instrument,
		Direction:  direction,
		EntryPrice: &entry,
		Confidence: 0.8,
	}
}

func TestSignalService(t *testing.T) {
	svc := setupTestService(t)

	require.NoError(t, svc.Save(record("chan-1", "m1", "XAUUSD", models.DirectionBuy)))
	require.NoError(t, svc.Save(record("chan-1", "m2", "EURUSD", models.DirectionSell)))
	require.NoError(t, svc.Save(record("chan-2", "m3", "XAUUSD", models.DirectionLong)))

	t.Run("GetSignal by id", func(t *testing.T) {
		rec, err := svc.GetSignal(1)
		require.NoError(t, err)
		assert.Equal(t, "XAUUSD", rec.Instrument)
		assert.Equal(t, "m1", rec.MessageID)
	})

	t.Run("GetSignal missing id", func(t *testing.T) {
		_, err := svc.GetSignal(999)
		assert.Error(t, err)
	})

	t.Run("GetSignals paginated", func(t *testing.T) {
		recs, total, err := svc.GetSignals(1, 2, "")
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, recs, 2)
	})

	t.Run("GetSignals filtered by instrument", func(t *testing.T) {
		recs, total, err := svc.GetSignals(1, 10, "XAUUSD")
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		for _, rec := range recs {
			assert.Equal(t, "XAUUSD", rec.Instrument)
		}
	})

	t.Run("GetSignalsByChannel", func(t *testing.T) {
		recs, err := svc.GetSignalsByChannel("chan-1", 10)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("GetSignalsByInstrument", func(t *testing.T) {
		recs, err := svc.GetSignalsByInstrument("EURUSD", 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, models.DirectionSell, recs[0].Direction)
	})

	t.Run("CountFingerprints", func(t *testing.T) {
		total, err := svc.CountFingerprints()
		require.NoError(t, err)
		assert.Zero(t, total)

		require.NoError(t, svc.db.Create(&models.Fingerprint{
			ChannelID: "chan-1", MessageID: "m1", Outcome: models.OutcomeOK,
		}).Error)

		total, err = svc.CountFingerprints()
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})
}
