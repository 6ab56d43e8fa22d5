package policymodule

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/events"
)

// Manager wires the decision engine and the learning loop to storage,
// caching, events, and configuration.
type Manager struct {
	logger   hclog.Logger
	store    *Store
	cache    *ClientCache
	eventBus events.EventBus
	cfgMgr   *config.ConfigManager

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a policy manager on the given database handle
func NewManager(db *gorm.DB, eventBus events.EventBus, cfgMgr *config.ConfigManager) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := cfgMgr.GetConfig()

	return &Manager{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "policy-manager",
			Level: hclog.Info,
		}),
		store:    NewStore(db),
		cache:    NewClientCache(cfg.Policy.ClientCacheTTL),
		eventBus: eventBus,
		cfgMgr:   cfgMgr,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches background maintenance and subscribes to config reloads
func (m *Manager) Start() {
	m.cfgMgr.AddWatcher(func(oldConfig, newConfig *config.Config) {
		if oldConfig.Policy != newConfig.Policy {
			m.logger.Info("policy configuration changed, purging client cache")
			m.cache.Purge()
		}
	})
	go m.retentionLoop()
}

// Stop shuts down background work
func (m *Manager) Stop() {
	m.cancel()
}

// policyConfig snapshots the current policy configuration for one call
func (m *Manager) policyConfig() config.PolicyConfig {
	return m.cfgMgr.GetConfig().Policy
}

// DecideForDevice resolves the device's profile (seeding it on first
// contact) and computes a playback policy for the media.
func (m *Manager) DecideForDevice(desc DeviceDescriptor, media *MediaCharacteristics) (PlaybackPolicy, *database.ClientProfile, error) {
	client, err := m.resolveClient(desc)
	if err != nil {
		// Storage trouble must not block a playback decision.
		m.logger.Error("client resolution failed, using unseeded profile", "device", desc.DeviceID, "error", err)
		client = SeedProfile(desc)
	}

	cfg := m.policyConfig()
	policy := ComputePolicy(cfg, client, media)

	m.publish(events.EventPolicyComputed, "policy computed", map[string]interface{}{
		"device_id":   desc.DeviceID,
		"confidence":  policy.Confidence,
		"direct_play": policy.AllowDirectPlay,
		"is_default":  policy.IsDefault(),
	})

	return policy, client, nil
}

// resolveClient looks up a profile cache-first, seeding a new one on first
// contact.
func (m *Manager) resolveClient(desc DeviceDescriptor) (*database.ClientProfile, error) {
	if desc.DeviceID == "" {
		return nil, errors.New("empty device identifier")
	}

	if cached := m.cache.Get(desc.DeviceID); cached != nil {
		return cached, nil
	}

	client, err := m.store.GetClient(desc.DeviceID)
	if err == nil {
		m.cache.Set(desc.DeviceID, client)
		return client, nil
	}
	if !errors.Is(err, ErrClientNotFound) {
		return nil, err
	}

	client = SeedProfile(desc)
	if err := m.store.UpsertClient(client); err != nil {
		return nil, err
	}
	m.cache.Set(desc.DeviceID, client)
	m.publish(events.EventClientSeeded, "client profile seeded", map[string]interface{}{
		"device_id": desc.DeviceID,
		"category":  client.Category,
	})
	m.logger.Info("seeded new client profile", "device", desc.DeviceID, "category", client.Category)

	return client, nil
}

// RecordPlaybackStart creates an outcome for a session. The classification
// stays unknown unless the session already started as a transcode.
func (m *Manager) RecordPlaybackStart(desc DeviceDescriptor, media *MediaCharacteristics, method PlayMethod, policy PlaybackPolicy, reasons []string) (*database.PlaybackOutcome, error) {
	if _, err := m.resolveClient(desc); err != nil {
		m.logger.Warn("recording outcome for unresolvable client", "device", desc.DeviceID, "error", err)
	}

	classification := OutcomeUnknown
	if method == MethodTranscode {
		classification = OutcomeTranscoded
	}

	snapshot, err := json.Marshal(policy)
	if err != nil {
		snapshot = []byte("{}")
	}

	outcome := &database.PlaybackOutcome{
		ID:               uuid.NewString(),
		DeviceID:         desc.DeviceID,
		VideoCodec:       lower(media.VideoCodec),
		AudioCodec:       lower(media.AudioCodec),
		Container:        lower(media.Container),
		PlayMethod:       string(method),
		Classification:   string(classification),
		TranscodeReasons: database.StringList(reasons),
		PolicySnapshot:   string(snapshot),
		StartedAt:        time.Now().UTC(),
	}

	if err := m.store.SaveOutcome(outcome); err != nil {
		return nil, err
	}

	m.publish(events.EventOutcomeRecorded, "playback started", map[string]interface{}{
		"outcome_id": outcome.ID,
		"device_id":  outcome.DeviceID,
		"method":     outcome.PlayMethod,
	})
	return outcome, nil
}

// RecordPlaybackStop finalizes an outcome and feeds it to the learning
// loop. A failed confidence persist is a logged lost update, never an error
// surfaced to the host.
func (m *Manager) RecordPlaybackStop(outcomeID string, playedTicks, totalTicks int64) (*database.PlaybackOutcome, error) {
	outcome, err := m.store.GetOutcome(outcomeID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	outcome.PlayedTicks = playedTicks
	outcome.TotalTicks = totalTicks
	outcome.StoppedAt = &now

	cfg := m.policyConfig()

	if err := m.store.WithClientLock(outcome.DeviceID, func() error {
		client, err := m.store.GetClient(outcome.DeviceID)
		if err != nil {
			return err
		}
		if ProcessOutcome(cfg, outcome, client) {
			if err := m.store.UpsertClient(client); err != nil {
				return err
			}
			m.cache.Invalidate(outcome.DeviceID)
		}
		return nil
	}); err != nil {
		m.logger.Error("confidence update lost", "outcome", outcomeID, "error", err)
	}

	// Classification resolves even when learning is disabled or the client
	// could not be updated.
	if OutcomeClass(outcome.Classification) == OutcomeUnknown || outcome.Classification == "" {
		outcome.Classification = string(ClassifyOutcome(outcome))
	}

	if err := m.store.SaveOutcome(outcome); err != nil {
		return nil, err
	}

	m.publish(events.EventOutcomeFinalized, "playback finished", map[string]interface{}{
		"outcome_id":     outcome.ID,
		"device_id":      outcome.DeviceID,
		"classification": outcome.Classification,
	})
	return outcome, nil
}

// Recalibrate recomputes a client's confidence maps from its recent history
func (m *Manager) Recalibrate(deviceID string) error {
	cfg := m.policyConfig()

	history, err := m.store.OutcomesByDevice(deviceID, cfg.RecalibrationHistory)
	if err != nil {
		return err
	}

	err = m.store.WithClientLock(deviceID, func() error {
		client, err := m.store.GetClient(deviceID)
		if err != nil {
			return err
		}
		RecalibrateClient(client, history)
		if err := m.store.UpsertClient(client); err != nil {
			return err
		}
		m.cache.Invalidate(deviceID)
		return nil
	})
	if err != nil {
		return err
	}

	recordRecalibration()
	m.publish(events.EventClientRecalibrated, "client recalibrated", map[string]interface{}{
		"device_id": deviceID,
		"history":   len(history),
	})
	return nil
}

// GetClientProfile returns a client profile, cache-first
func (m *Manager) GetClientProfile(deviceID string) (*database.ClientProfile, error) {
	if cached := m.cache.Get(deviceID); cached != nil {
		return cached, nil
	}
	return m.store.GetClient(deviceID)
}

// Stats summarizes the advisor's state for the stats endpoint
func (m *Manager) Stats() map[string]interface{} {
	clients, _ := m.store.CountClients()
	outcomes, _ := m.store.CountOutcomes()
	cfg := m.policyConfig()

	return map[string]interface{}{
		"clients":           clients,
		"outcomes":          outcomes,
		"cached_clients":    m.cache.Len(),
		"dynamic_shaping":   cfg.DynamicShaping,
		"learning_enabled":  cfg.LearningEnabled,
		"conservative_mode": cfg.ConservativeMode,
	}
}

// retentionLoop prunes aged outcomes on the configured interval
func (m *Manager) retentionLoop() {
	cfg := m.policyConfig()
	interval := cfg.PruneInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			retention := m.policyConfig().RetentionDays
			pruned, err := m.store.PruneOutcomes(retention)
			if err != nil {
				m.logger.Error("outcome pruning failed", "error", err)
				continue
			}
			if pruned > 0 {
				m.logger.Info("pruned aged outcomes", "count", pruned, "retention_days", retention)
				m.publish(events.EventOutcomePruned, "outcomes pruned", map[string]interface{}{
					"count": pruned,
				})
			}
		}
	}
}

func (m *Manager) publish(eventType events.EventType, message string, data map[string]interface{}) {
	if m.eventBus == nil {
		return
	}
	m.eventBus.PublishAsync(events.NewEvent(eventType, "policy-manager", message, data))
}

func lower(s string) string {
	return strings.ToLower(s)
}
