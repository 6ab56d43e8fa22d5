package policymodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
)

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome database.PlaybackOutcome
		want    OutcomeClass
	}{
		{
			name:    "transcode is transcoded even when fully watched",
			outcome: database.PlaybackOutcome{PlayMethod: "transcode", PlayedTicks: 10000, TotalTicks: 10000},
			want:    OutcomeTranscoded,
		},
		{
			name:    "abandoned almost immediately",
			outcome: database.PlaybackOutcome{PlayMethod: "direct_play", PlayedTicks: 100, TotalTicks: 100000},
			want:    OutcomeSuspectedFailure,
		},
		{
			name:    "half watched is a success",
			outcome: database.PlaybackOutcome{PlayMethod: "direct_play", PlayedTicks: 5000, TotalTicks: 10000},
			want:    OutcomeSuccess,
		},
		{
			name:    "ratio exactly at the boundary counts as success",
			outcome: database.PlaybackOutcome{PlayMethod: "direct_stream", PlayedTicks: 15, TotalTicks: 100},
			want:    OutcomeSuccess,
		},
		{
			name:    "missing duration cannot be classified",
			outcome: database.PlaybackOutcome{PlayMethod: "direct_play", PlayedTicks: 500, TotalTicks: 0},
			want:    OutcomeUnknown,
		},
		{
			name:    "zero played ticks cannot be classified",
			outcome: database.PlaybackOutcome{PlayMethod: "direct_play", PlayedTicks: 0, TotalTicks: 10000},
			want:    OutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOutcome(&tt.outcome)
			if got != tt.want {
				t.Errorf("ClassifyOutcome() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProcessOutcomeDisabled(t *testing.T) {
	client := testClient(CategoryWeb, map[string]float64{"hevc": 0.4}, nil)
	outcome := &database.PlaybackOutcome{
		PlayMethod: "direct_play", VideoCodec: "hevc",
		PlayedTicks: 9000, TotalTicks: 10000,
	}

	changed := ProcessOutcome(config.PolicyConfig{LearningEnabled: false}, outcome, client)

	assert.False(t, changed)
	assert.Equal(t, 0.4, client.CodecConfidence["hevc"])
}

func TestProcessOutcomeSuccessRaisesConfidence(t *testing.T) {
	client := testClient(CategoryWeb,
		map[string]float64{"hevc": 0.2, "aac": 0.6},
		map[string]float64{"mkv": 0.3})
	outcome := &database.PlaybackOutcome{
		PlayMethod: "direct_play",
		VideoCodec: "hevc", AudioCodec: "aac", Container: "mkv",
		PlayedTicks: 9000, TotalTicks: 10000,
	}

	changed := ProcessOutcome(enabledPolicyConfig(), outcome, client)

	require.True(t, changed)
	assert.Equal(t, string(OutcomeSuccess), outcome.Classification)
	assert.InDelta(t, 0.35, client.CodecConfidence["hevc"], 0.001)
	assert.InDelta(t, 0.675, client.CodecConfidence["aac"], 0.001)
	assert.InDelta(t, 0.375, client.ContainerConfidence["mkv"], 0.001)
}

func TestProcessOutcomeUnseenKeyStartsNeutral(t *testing.T) {
	client := testClient(CategoryWeb, nil, nil)
	outcome := &database.PlaybackOutcome{
		PlayMethod: "direct_play", VideoCodec: "av1",
		PlayedTicks: 9000, TotalTicks: 10000,
	}

	require.True(t, ProcessOutcome(enabledPolicyConfig(), outcome, client))
	assert.InDelta(t, 0.65, client.CodecConfidence["av1"], 0.001)
}

func TestProcessOutcomeConfidenceClamps(t *testing.T) {
	client := testClient(CategoryWeb, map[string]float64{"h264": 0.9}, nil)

	for i := 0; i < 20; i++ {
		outcome := &database.PlaybackOutcome{
			PlayMethod: "direct_play", VideoCodec: "h264",
			PlayedTicks: 9000, TotalTicks: 10000,
		}
		ProcessOutcome(enabledPolicyConfig(), outcome, client)
	}
	assert.Equal(t, 1.0, client.CodecConfidence["h264"])

	for i := 0; i < 40; i++ {
		outcome := &database.PlaybackOutcome{
			PlayMethod: "direct_play", VideoCodec: "h264",
			PlayedTicks: 100, TotalTicks: 100000,
		}
		ProcessOutcome(enabledPolicyConfig(), outcome, client)
	}
	assert.Equal(t, 0.0, client.CodecConfidence["h264"])
	assert.GreaterOrEqual(t, client.ReliabilityScore, 0.0)
}

func TestProcessOutcomeTranscodedPenalties(t *testing.T) {
	t.Run("audio-only trigger penalizes audio codec", func(t *testing.T) {
		client := testClient(CategoryTV,
			map[string]float64{"hevc": 0.8, "truehd": 0.5}, nil)
		outcome := &database.PlaybackOutcome{
			PlayMethod: "transcode",
			VideoCodec: "hevc", AudioCodec: "truehd",
			TranscodeReasons: database.StringList{ReasonAudioCodec},
			PlayedTicks:      9000, TotalTicks: 10000,
		}

		require.True(t, ProcessOutcome(enabledPolicyConfig(), outcome, client))
		assert.Equal(t, 0.8, client.CodecConfidence["hevc"], "video confidence untouched")
		assert.InDelta(t, 0.44, client.CodecConfidence["truehd"], 0.001)
	})

	t.Run("video trigger penalizes video codec", func(t *testing.T) {
		client := testClient(CategoryTV, map[string]float64{"hevc": 0.8}, nil)
		outcome := &database.PlaybackOutcome{
			PlayMethod: "transcode",
			VideoCodec: "hevc", AudioCodec: "truehd",
			TranscodeReasons: database.StringList{ReasonVideoCodec, ReasonAudioCodec},
			PlayedTicks:      9000, TotalTicks: 10000,
		}

		require.True(t, ProcessOutcome(enabledPolicyConfig(), outcome, client))
		assert.InDelta(t, 0.68, client.CodecConfidence["hevc"], 0.001)
	})

	t.Run("no recorded reasons defaults to video", func(t *testing.T) {
		client := testClient(CategoryTV, map[string]float64{"hevc": 0.8}, nil)
		outcome := &database.PlaybackOutcome{
			PlayMethod:  "transcode",
			VideoCodec:  "hevc",
			PlayedTicks: 9000, TotalTicks: 10000,
		}

		require.True(t, ProcessOutcome(enabledPolicyConfig(), outcome, client))
		assert.InDelta(t, 0.68, client.CodecConfidence["hevc"], 0.001)
	})
}

func directPlaySuccesses(codec string, n int) []database.PlaybackOutcome {
	history := make([]database.PlaybackOutcome, 0, n)
	for i := 0; i < n; i++ {
		history = append(history, database.PlaybackOutcome{
			PlayMethod:     string(MethodDirectPlay),
			VideoCodec:     codec,
			Classification: string(OutcomeSuccess),
		})
	}
	return history
}

func TestRecalibrateClientBlendsObservedRate(t *testing.T) {
	client := testClient(CategoryWeb, map[string]float64{"hevc": 0.2}, nil)

	RecalibrateClient(client, directPlaySuccesses("hevc", 10))

	// 0.2*0.3 + 1.0*0.7
	assert.InDelta(t, 0.76, client.CodecConfidence["hevc"], 0.001)
}

func TestRecalibrateClientSkipsSparseKeys(t *testing.T) {
	client := testClient(CategoryWeb, map[string]float64{"hevc": 0.2}, nil)

	RecalibrateClient(client, directPlaySuccesses("hevc", 2))

	assert.Equal(t, 0.2, client.CodecConfidence["hevc"], "fewer than three samples must not recalibrate")
}

func TestRecalibrateClientUnseenKeyUsesObservedRate(t *testing.T) {
	client := testClient(CategoryWeb, nil, nil)

	history := directPlaySuccesses("av1", 4)
	history[3].Classification = string(OutcomeSuspectedFailure)

	RecalibrateClient(client, history)

	assert.InDelta(t, 0.75, client.CodecConfidence["av1"], 0.001)
}

func TestRecalibrateClientCountsOnlyDirectPlaySuccess(t *testing.T) {
	client := testClient(CategoryWeb, nil, nil)

	history := []database.PlaybackOutcome{
		{PlayMethod: string(MethodTranscode), VideoCodec: "hevc", Classification: string(OutcomeTranscoded)},
		{PlayMethod: string(MethodTranscode), VideoCodec: "hevc", Classification: string(OutcomeTranscoded)},
		{PlayMethod: string(MethodTranscode), VideoCodec: "hevc", Classification: string(OutcomeTranscoded)},
		{PlayMethod: string(MethodDirectPlay), VideoCodec: "hevc", Classification: string(OutcomeSuccess)},
	}

	RecalibrateClient(client, history)

	assert.InDelta(t, 0.25, client.CodecConfidence["hevc"], 0.001)
}
