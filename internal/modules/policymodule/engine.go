package policymodule

import (
	"fmt"
	"strings"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/logger"
)

// Confidence model constants. Thresholds are deliberately not configurable;
// the learning loop calibrates toward them.
const (
	highConfidence = 0.7
	lowConfidence  = 0.4

	// baseConfidence is the engine's neutral starting belief. Rule findings
	// and confidence refinements move it up or down from here.
	baseConfidence = 0.5

	requireBoost   = 0.15
	recommendBoost = 0.10
)

// dimensionState tracks one policy dimension through the static rule pass
type dimensionState struct {
	value    TriState
	severity Severity
}

func (d *dimensionState) apply(v TriState, severity Severity) {
	if !v.Defined() {
		return
	}
	if !d.value.Defined() || severity >= d.severity {
		d.value = v
		d.severity = severity
	}
}

// lockedRequire reports whether the dimension was pinned by a Require
// finding; confidence refinements must not overturn those.
func (d *dimensionState) lockedRequire() bool {
	return d.value.Defined() && d.severity == SeverityRequire
}

// ComputePolicy evaluates the compatibility rules and the client's learned
// confidence into a playback policy. It never returns an error and never
// panics outward: any internal fault degrades to the neutral default policy.
func ComputePolicy(cfg config.PolicyConfig, client *database.ClientProfile, media *MediaCharacteristics) (policy PlaybackPolicy) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("policy computation panicked, returning default policy",
				logger.String("device", clientDeviceID(client)),
				logger.String("panic", fmt.Sprintf("%v", r)))
			policy = DefaultPolicy()
		}
	}()

	// Observe-only conservative deployments skip computation entirely.
	if !cfg.DynamicShaping && cfg.ConservativeMode {
		return DefaultPolicy()
	}

	if client == nil || media == nil {
		return DefaultPolicy()
	}

	var rationale []string
	confidence := baseConfidence

	// Static rule pass. Per dimension the highest-severity opinion wins;
	// ties go to the later rule in registration order. Caps are not
	// severity-ranked: the most restrictive one always applies.
	var dp, ds, tc dimensionState
	var bitrateCap int64

	for _, finding := range evaluateRules(client, media) {
		dp.apply(finding.DirectPlay, finding.Severity)
		ds.apply(finding.DirectStream, finding.Severity)
		tc.apply(finding.Transcode, finding.Severity)
		bitrateCap = minNonZero(bitrateCap, finding.BitrateCap)

		switch finding.Severity {
		case SeverityRequire:
			confidence += requireBoost
		case SeverityRecommend:
			confidence += recommendBoost
		}
		rationale = append(rationale, fmt.Sprintf("[%s] %s", finding.Severity, finding.Rationale))
	}

	allowDirectPlay := dp.value.Bool(true)
	allowDirectStream := ds.value.Bool(true)
	allowTranscoding := tc.value.Bool(true)

	// Confidence-driven refinement, in fixed order. Each step reads the
	// flags above and only overrides non-Require decisions.

	// Video codec confidence.
	if codec := strings.ToLower(media.VideoCodec); codec != "" {
		conf, known := client.CodecConfidence[codec]
		switch {
		case !known:
			rationale = append(rationale, fmt.Sprintf("video codec %s: no data", codec))
		case conf >= highConfidence:
			if !dp.lockedRequire() {
				allowDirectPlay = true
			}
			confidence += 0.2
			rationale = append(rationale, fmt.Sprintf("video codec %s: high confidence %.2f, favoring direct play", codec, conf))
		case conf >= lowConfidence:
			allowDirectStream = true
			rationale = append(rationale, fmt.Sprintf("video codec %s: moderate confidence %.2f, direct play with remux fallback", codec, conf))
		default:
			if !dp.lockedRequire() {
				allowDirectPlay = false
			}
			if !tc.lockedRequire() {
				allowTranscoding = true
			}
			confidence -= 0.1
			rationale = append(rationale, fmt.Sprintf("video codec %s: low confidence %.2f, transcode preferred", codec, conf))
		}
	}

	// Audio codec confidence. Deltas are smaller than video; when the media
	// is cheap to repackage an audio-only transcode beats disabling direct
	// play outright.
	if audio := strings.ToLower(media.AudioCodec); audio != "" {
		conf, known := client.CodecConfidence[audio]
		switch {
		case !known:
			rationale = append(rationale, fmt.Sprintf("audio codec %s: no data", audio))
		case conf >= highConfidence:
			confidence += 0.05
			rationale = append(rationale, fmt.Sprintf("audio codec %s: high confidence %.2f", audio, conf))
		case conf >= lowConfidence:
			allowDirectStream = true
			rationale = append(rationale, fmt.Sprintf("audio codec %s: moderate confidence %.2f, remux fallback available", audio, conf))
		default:
			if media.TranscodeCost() <= CostRemux {
				allowDirectStream = true
				if !tc.lockedRequire() {
					allowTranscoding = true
				}
				rationale = append(rationale, fmt.Sprintf("audio codec %s: low confidence %.2f, preferring remux with audio transcode", audio, conf))
			} else {
				if !dp.lockedRequire() {
					allowDirectPlay = false
				}
				if !tc.lockedRequire() {
					allowTranscoding = true
				}
				rationale = append(rationale, fmt.Sprintf("audio codec %s: low confidence %.2f, transcode fallback", audio, conf))
			}
			confidence -= 0.05
		}
	}

	// Container confidence.
	if container := strings.ToLower(media.Container); container != "" {
		conf, known := client.ContainerConfidence[container]
		switch {
		case !known:
			rationale = append(rationale, fmt.Sprintf("container %s: no data", container))
		case conf >= highConfidence:
			confidence += 0.1
			rationale = append(rationale, fmt.Sprintf("container %s: high confidence %.2f", container, conf))
		case conf >= lowConfidence:
			allowDirectStream = true
			rationale = append(rationale, fmt.Sprintf("container %s: moderate confidence %.2f, direct stream as safety net", container, conf))
		default:
			if allowDirectPlay && !dp.lockedRequire() {
				allowDirectPlay = false
				allowDirectStream = true
				rationale = append(rationale, fmt.Sprintf("container %s: low confidence %.2f, forcing remux", container, conf))
			}
		}
	}

	// Effective bitrate ceiling: global override first, else the client's
	// known ceiling.
	effectiveCap := cfg.GlobalBitrateCap
	if effectiveCap <= 0 {
		effectiveCap = client.MaxBitrate
	}
	if effectiveCap > 0 && media.Bitrate > 0 && media.Bitrate > effectiveCap {
		bitrateCap = minNonZero(bitrateCap, effectiveCap)
		if !tc.lockedRequire() {
			allowTranscoding = true
		}
		rationale = append(rationale, fmt.Sprintf("media bitrate %d exceeds effective ceiling %d", media.Bitrate, effectiveCap))
	}

	// Cost annotation.
	tier := media.TranscodeCost()
	rationale = append(rationale, fmt.Sprintf("estimated transcode cost: %s", tier))
	if tier == CostExtreme && !allowDirectPlay {
		rationale = append(rationale, "warning: fallback transcode will be expensive")
	}
	if tier == CostRemux {
		allowDirectStream = true
	}

	confidence = clamp01(confidence)

	// Below the low-confidence threshold the engine defers entirely rather
	// than returning partial computation with a misleading score.
	if confidence < lowConfidence {
		logger.Info("deferring to default policy on low confidence",
			logger.String("device", client.DeviceID),
			logger.Float("confidence", confidence))
		recordDeferral()
		return DefaultPolicy()
	}

	policy = PlaybackPolicy{
		AllowDirectPlay:   allowDirectPlay,
		AllowDirectStream: allowDirectStream,
		AllowTranscoding:  allowTranscoding,
		BitrateCap:        bitrateCap,
		Confidence:        confidence,
		Rationale:         rationale,
	}
	recordDecision(policy)
	return policy
}

// evaluateRules runs every registered rule, isolating failures: a panicking
// rule is logged and skipped, never aborting the decision.
func evaluateRules(client *database.ClientProfile, media *MediaCharacteristics) []RuleFinding {
	findings := make([]RuleFinding, 0, len(ruleRegistry))

	for _, rule := range ruleRegistry {
		finding := safeEvaluate(rule, client, media)
		if finding != nil {
			findings = append(findings, *finding)
		}
	}

	return findings
}

func safeEvaluate(rule compatibilityRule, client *database.ClientProfile, media *MediaCharacteristics) (finding *RuleFinding) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("compatibility rule panicked, treating as no finding",
				logger.String("rule", rule.name),
				logger.String("panic", fmt.Sprintf("%v", r)))
			recordRuleFault(rule.name)
			finding = nil
		}
	}()
	return rule.evaluate(client, media)
}

func minNonZero(a, b int64) int64 {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clientDeviceID(client *database.ClientProfile) string {
	if client == nil {
		return ""
	}
	return client.DeviceID
}
