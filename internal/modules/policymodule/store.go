package policymodule

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediamesh/playadvisor/internal/database"
)

// ErrClientNotFound is returned when no profile exists for a device
var ErrClientNotFound = errors.New("client profile not found")

// ErrOutcomeNotFound is returned when no outcome exists for an ID
var ErrOutcomeNotFound = errors.New("playback outcome not found")

const lockStripes = 64

// Store persists client profiles and playback outcomes. Learning writes for
// one client are serialized through striped per-device locks because the
// read-adjust-clamp-write sequence is not commutative under interleaving.
type Store struct {
	db    *gorm.DB
	locks [lockStripes]sync.Mutex
}

// NewStore creates a store on the given database handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetClient fetches a client profile by device ID
func (s *Store) GetClient(deviceID string) (*database.ClientProfile, error) {
	var profile database.ClientProfile
	err := s.db.Where("device_id = ?", deviceID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client %s: %w", deviceID, err)
	}
	return &profile, nil
}

// UpsertClient creates or updates a client profile keyed by device ID
func (s *Store) UpsertClient(profile *database.ClientProfile) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "app_name", "app_version", "category",
			"codec_confidence", "container_confidence",
			"max_bitrate", "reliability_score", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert client %s: %w", profile.DeviceID, err)
	}
	return nil
}

// WithClientLock runs fn while holding the device's write lock. Used by the
// learning path to make read-adjust-write atomic per client.
func (s *Store) WithClientLock(deviceID string, fn func() error) error {
	lock := &s.locks[stripeFor(deviceID)]
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func stripeFor(deviceID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(deviceID))
	return h.Sum32() % lockStripes
}

// SaveOutcome inserts or updates a playback outcome
func (s *Store) SaveOutcome(outcome *database.PlaybackOutcome) error {
	if err := s.db.Save(outcome).Error; err != nil {
		return fmt.Errorf("failed to save outcome %s: %w", outcome.ID, err)
	}
	return nil
}

// GetOutcome fetches one outcome by ID
func (s *Store) GetOutcome(id string) (*database.PlaybackOutcome, error) {
	var outcome database.PlaybackOutcome
	err := s.db.Where("id = ?", id).First(&outcome).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOutcomeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load outcome %s: %w", id, err)
	}
	return &outcome, nil
}

// OutcomesByDevice returns the most recent outcomes for a device, newest
// first, bounded by limit.
func (s *Store) OutcomesByDevice(deviceID string, limit int) ([]database.PlaybackOutcome, error) {
	if limit <= 0 {
		limit = 200
	}
	var outcomes []database.PlaybackOutcome
	err := s.db.Where("device_id = ?", deviceID).
		Order("started_at DESC").
		Limit(limit).
		Find(&outcomes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes for %s: %w", deviceID, err)
	}
	return outcomes, nil
}

// OutcomesSince returns all outcomes started at or after the given time
func (s *Store) OutcomesSince(since time.Time) ([]database.PlaybackOutcome, error) {
	var outcomes []database.PlaybackOutcome
	err := s.db.Where("started_at >= ?", since).
		Order("started_at ASC").
		Find(&outcomes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load outcomes since %s: %w", since, err)
	}
	return outcomes, nil
}

// PruneOutcomes deletes outcomes older than the retention window and
// returns how many rows were removed.
func (s *Store) PruneOutcomes(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("started_at < ?", cutoff).Delete(&database.PlaybackOutcome{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune outcomes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountClients returns the number of known client profiles
func (s *Store) CountClients() (int64, error) {
	var count int64
	err := s.db.Model(&database.ClientProfile{}).Count(&count).Error
	return count, err
}

// CountOutcomes returns the number of stored outcomes
func (s *Store) CountOutcomes() (int64, error) {
	var count int64
	err := s.db.Model(&database.PlaybackOutcome{}).Count(&count).Error
	return count, err
}
