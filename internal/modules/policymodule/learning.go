package policymodule

import (
	"strings"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/logger"
)

// Learning constants. The learning rate keeps any single event from
// saturating confidence; recalibration trusts observed history over the
// existing estimate but never discards it.
const (
	learningRate = 0.15

	// suspectedFailureRatio: sessions abandoned below this fraction of the
	// runtime are treated as suspected playback failures.
	suspectedFailureRatio = 0.15

	recalibrationMinSamples = 3
	recalibrationOldWeight  = 0.3
	recalibrationNewWeight  = 0.7
)

// adjustment holds per-axis confidence deltas before learning-rate scaling
type adjustment struct {
	video     float64
	audio     float64
	container float64
}

// ClassifyOutcome resolves an outcome's classification from its observed
// method and watch ratio. A transcoded session is Transcoded regardless of
// duration; an undefined ratio leaves the classification Unknown.
func ClassifyOutcome(outcome *database.PlaybackOutcome) OutcomeClass {
	if PlayMethod(outcome.PlayMethod) == MethodTranscode {
		return OutcomeTranscoded
	}
	if outcome.PlayedTicks <= 0 || outcome.TotalTicks <= 0 {
		return OutcomeUnknown
	}
	ratio := float64(outcome.PlayedTicks) / float64(outcome.TotalTicks)
	if ratio < suspectedFailureRatio {
		return OutcomeSuspectedFailure
	}
	return OutcomeSuccess
}

// ProcessOutcome applies one observed playback outcome to the client's
// confidence maps. It mutates the client in memory; persisting the update is
// the caller's responsibility. Returns true when anything changed.
func ProcessOutcome(cfg config.PolicyConfig, outcome *database.PlaybackOutcome, client *database.ClientProfile) bool {
	if !cfg.LearningEnabled || outcome == nil || client == nil {
		return false
	}

	class := OutcomeClass(outcome.Classification)
	if class == "" || class == OutcomeUnknown {
		class = ClassifyOutcome(outcome)
		outcome.Classification = string(class)
	}

	adj := adjustmentFor(class, outcome.TranscodeReasons)
	if adj == (adjustment{}) {
		return false
	}

	changed := false
	if applyAdjustment(&client.CodecConfidence, outcome.VideoCodec, adj.video) {
		changed = true
	}
	if applyAdjustment(&client.CodecConfidence, outcome.AudioCodec, adj.audio) {
		changed = true
	}
	if applyAdjustment(&client.ContainerConfidence, outcome.Container, adj.container) {
		changed = true
	}

	if changed {
		client.ReliabilityScore = clamp01(client.ReliabilityScore + reliabilityDelta(class)*learningRate)
		recordLearningUpdate(class)
	}
	return changed
}

// adjustmentFor maps a classification to per-axis magnitudes. Video carries
// the full magnitude; audio and container roughly half. Transcode penalties
// hit video unless the recorded trigger reasons point at audio alone.
func adjustmentFor(class OutcomeClass, reasons []string) adjustment {
	switch class {
	case OutcomeSuccess:
		return adjustment{video: 1.0, audio: 0.5, container: 0.5}
	case OutcomeFailure:
		return adjustment{video: -1.0, audio: -0.5, container: -0.5}
	case OutcomeSuspectedFailure:
		return adjustment{video: -0.6, audio: -0.3, container: -0.3}
	case OutcomeTranscoded:
		audioTriggered := containsReason(reasons, ReasonAudioCodec)
		videoTriggered := containsReason(reasons, ReasonVideoCodec)
		if audioTriggered && !videoTriggered {
			return adjustment{audio: -0.4}
		}
		return adjustment{video: -0.8}
	default:
		return adjustment{}
	}
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func reliabilityDelta(class OutcomeClass) float64 {
	switch class {
	case OutcomeSuccess:
		return 0.2
	case OutcomeFailure:
		return -0.3
	case OutcomeSuspectedFailure:
		return -0.2
	default:
		return 0
	}
}

// applyAdjustment performs the EMA-style update
// new = clamp(old + magnitude x learningRate). An empty key or zero
// magnitude is a no-op. A never-seen key starts from the neutral midpoint.
func applyAdjustment(m *database.ConfidenceMap, key string, magnitude float64) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || magnitude == 0 {
		return false
	}
	if *m == nil {
		*m = database.ConfidenceMap{}
	}
	old, known := (*m)[key]
	if !known {
		old = 0.5
	}
	(*m)[key] = clamp01(old + magnitude*learningRate)
	return true
}

// keyStats accumulates qualifying observations during recalibration
type keyStats struct {
	success int
	total   int
}

// RecalibrateClient recomputes the client's confidence maps from its recent
// outcome history. Unlike the incremental path this produces a stable
// statistical estimate; it skips any codec or container with fewer than
// three observations.
func RecalibrateClient(client *database.ClientProfile, history []database.PlaybackOutcome) {
	if client == nil || len(history) == 0 {
		return
	}

	videoStats := make(map[string]*keyStats)
	audioStats := make(map[string]*keyStats)
	containerStats := make(map[string]*keyStats)

	for i := range history {
		outcome := &history[i]
		success := PlayMethod(outcome.PlayMethod) == MethodDirectPlay &&
			OutcomeClass(outcome.Classification) == OutcomeSuccess
		accumulate(videoStats, outcome.VideoCodec, success)
		accumulate(audioStats, outcome.AudioCodec, success)
		accumulate(containerStats, outcome.Container, success)
	}

	blendStats(&client.CodecConfidence, videoStats)
	blendStats(&client.CodecConfidence, audioStats)
	blendStats(&client.ContainerConfidence, containerStats)

	logger.Debug("client recalibrated",
		logger.String("device", client.DeviceID),
		logger.Int("history", len(history)))
}

func accumulate(stats map[string]*keyStats, key string, success bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	s, ok := stats[key]
	if !ok {
		s = &keyStats{}
		stats[key] = s
	}
	s.total++
	if success {
		s.success++
	}
}

func blendStats(m *database.ConfidenceMap, stats map[string]*keyStats) {
	for key, s := range stats {
		if s.total < recalibrationMinSamples {
			continue
		}
		if *m == nil {
			*m = database.ConfidenceMap{}
		}
		observedRate := float64(s.success) / float64(s.total)
		if existing, known := (*m)[key]; known {
			(*m)[key] = clamp01(existing*recalibrationOldWeight + observedRate*recalibrationNewWeight)
		} else {
			(*m)[key] = clamp01(observedRate)
		}
	}
}
