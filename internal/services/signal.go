package services

import (
	"github.com/quantfeed/signal-scout/internal/database"
	"github.com/quantfeed/signal-scout/internal/models"
	"gorm.io/gorm"
)

// SignalService handles the persisted signal audit trail
type SignalService struct {
	db *gorm.DB
}

// NewSignalService creates a new signal service
func NewSignalService() *SignalService {
	return &SignalService{
		db: database.GetDB(),
	}
}

// Save persists an extracted signal record
func (s *SignalService) Save(rec *models.SignalRecord) error {
	return s.db.Create(rec).Error
}

// GetSignal retrieves a signal record by ID
func (s *SignalService) GetSignal(id uint) (*models.SignalRecord, error) {
	var rec models.SignalRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetSignals retrieves signal records with pagination and optional instrument filter
func (s *SignalService) GetSignals(page, limit int, instrument string) ([]models.SignalRecord, int64, error) {
	var recs []models.SignalRecord
	var total int64

	query := s.db.Model(&models.SignalRecord{})
	if instrument != "" {
		query = query.Where("instrument = ?", instrument)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Get paginated results
	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, 0, err
	}

	return recs, total, nil
}

// GetSignalsByChannel retrieves recent signal records from one channel
func (s *SignalService) GetSignalsByChannel(channelID string, limit int) ([]models.SignalRecord, error) {
	var recs []models.SignalRecord
	err := s.db.Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// GetSignalsByInstrument retrieves recent signal records for one instrument
func (s *SignalService) GetSignalsByInstrument(instrument string, limit int) ([]models.SignalRecord, error) {
	var recs []models.SignalRecord
	err := s.db.Where("instrument = ?", instrument).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// CountFingerprints returns the number of recorded message fingerprints
func (s *SignalService) CountFingerprints() (int64, error) {
	var total int64
	err := s.db.Model(&models.Fingerprint{}).Count(&total).Error
	return total, err
}
