package policymodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/events"
)

func testManager(t *testing.T) *Manager {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.ClientProfile{}, &database.PlaybackOutcome{}))

	cfgMgr := config.NewConfigManager()
	require.NoError(t, cfgMgr.LoadConfig(""))

	mgr := NewManager(db, events.NewEventBus(64), cfgMgr)
	t.Cleanup(mgr.Stop)
	return mgr
}

func tvDescriptor(deviceID string) DeviceDescriptor {
	return DeviceDescriptor{
		DeviceID:   deviceID,
		DeviceName: "Living Room TV",
		AppName:    "MediaMesh Tizen",
	}
}

func TestManagerDecideSeedsFirstContact(t *testing.T) {
	mgr := testManager(t)
	media := &MediaCharacteristics{VideoCodec: "hevc", Container: "mkv", Height: 1080}

	policy, client, err := mgr.DecideForDevice(tvDescriptor("tv-1"), media)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, string(CategoryTV), client.Category)
	assert.False(t, policy.IsDefault())
	assert.True(t, policy.AllowDirectPlay, "seeded tv profile trusts hevc")

	stored, err := mgr.GetClientProfile("tv-1")
	require.NoError(t, err)
	assert.Equal(t, string(CategoryTV), stored.Category)
}

func TestManagerDecideSurvivesEmptyDeviceID(t *testing.T) {
	mgr := testManager(t)
	media := &MediaCharacteristics{VideoCodec: "h264", Container: "mp4", Height: 1080}

	policy, client, err := mgr.DecideForDevice(DeviceDescriptor{}, media)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.GreaterOrEqual(t, policy.Confidence, 0.0)
}

func TestManagerPlaybackLifecycle(t *testing.T) {
	mgr := testManager(t)
	desc := tvDescriptor("tv-1")
	media := &MediaCharacteristics{VideoCodec: "hevc", AudioCodec: "aac", Container: "mkv", Height: 1080}

	policy, _, err := mgr.DecideForDevice(desc, media)
	require.NoError(t, err)

	outcome, err := mgr.RecordPlaybackStart(desc, media, MethodDirectPlay, policy, nil)
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeUnknown), outcome.Classification)
	assert.NotEmpty(t, outcome.PolicySnapshot)

	finalized, err := mgr.RecordPlaybackStop(outcome.ID, 9000, 10000)
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeSuccess), finalized.Classification)
	require.NotNil(t, finalized.StoppedAt)

	client, err := mgr.GetClientProfile("tv-1")
	require.NoError(t, err)
	seed := seedFor(CategoryTV)
	assert.Greater(t, client.CodecConfidence["hevc"], seed.codecs["hevc"],
		"success must raise learned confidence above the seed")
	assert.Greater(t, client.ContainerConfidence["mkv"], seed.containers["mkv"])
}

func TestManagerTranscodeStartClassifiesImmediately(t *testing.T) {
	mgr := testManager(t)
	desc := tvDescriptor("tv-1")
	media := &MediaCharacteristics{VideoCodec: "av1", Container: "mkv", Height: 2160}

	policy, _, err := mgr.DecideForDevice(desc, media)
	require.NoError(t, err)

	outcome, err := mgr.RecordPlaybackStart(desc, media, MethodTranscode, policy, []string{ReasonVideoCodec})
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeTranscoded), outcome.Classification)

	finalized, err := mgr.RecordPlaybackStop(outcome.ID, 9000, 10000)
	require.NoError(t, err)
	assert.Equal(t, string(OutcomeTranscoded), finalized.Classification,
		"transcoded classification is not overwritten by the watch ratio")
}

func TestManagerStopUnknownOutcome(t *testing.T) {
	mgr := testManager(t)

	_, err := mgr.RecordPlaybackStop("does-not-exist", 1, 2)
	assert.ErrorIs(t, err, ErrOutcomeNotFound)
}

func TestManagerRecalibrate(t *testing.T) {
	mgr := testManager(t)
	desc := tvDescriptor("tv-1")
	media := &MediaCharacteristics{VideoCodec: "vp9", Container: "mkv", Height: 1080}

	policy, _, err := mgr.DecideForDevice(desc, media)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		outcome, err := mgr.RecordPlaybackStart(desc, media, MethodDirectPlay, policy, nil)
		require.NoError(t, err)
		_, err = mgr.RecordPlaybackStop(outcome.ID, 9000, 10000)
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Recalibrate("tv-1"))

	client, err := mgr.GetClientProfile("tv-1")
	require.NoError(t, err)
	assert.Greater(t, client.CodecConfidence["vp9"], 0.9,
		"a clean direct play history recalibrates toward 1.0")
}

func TestManagerRecalibrateUnknownDevice(t *testing.T) {
	mgr := testManager(t)

	err := mgr.Recalibrate("ghost")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestManagerStats(t *testing.T) {
	mgr := testManager(t)
	media := &MediaCharacteristics{VideoCodec: "h264", Container: "mp4", Height: 720}

	_, _, err := mgr.DecideForDevice(tvDescriptor("tv-1"), media)
	require.NoError(t, err)

	stats := mgr.Stats()
	assert.Equal(t, int64(1), stats["clients"])
	assert.Equal(t, true, stats["dynamic_shaping"])
	assert.Equal(t, true, stats["learning_enabled"])
}
