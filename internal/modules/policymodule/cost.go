package policymodule

import (
	"strings"
)

// Additive score weights for the transcode cost estimate. Buckets are
// applied only after the full score is accumulated.
const (
	costScoreLowMax    = 1
	costScoreMediumMax = 3
	costScoreHighMax   = 6
)

// videoCodecWeights: 0 for ubiquitous codecs, 1 for common-but-not-universal,
// 2 for codecs with heavy or uncommon hardware decode. Unknown codecs are
// assumed non-trivial.
var videoCodecWeights = map[string]int{
	"h264":       0,
	"mpeg4":      0,
	"hevc":       1,
	"h265":       1,
	"vp9":        1,
	"av1":        2,
	"vc1":        2,
	"mpeg2video": 2,
}

// cheapAudioCodecs carry no transcode weight
var cheapAudioCodecs = map[string]bool{
	"aac":    true,
	"mp3":    true,
	"opus":   true,
	"vorbis": true,
	"ac3":    true,
}

// mp4Family containers need no repackaging for broad compatibility
var mp4Family = map[string]bool{
	"mp4": true,
	"m4v": true,
	"mov": true,
}

// remuxableContainers merely need repackaging for an otherwise-compatible
// codec
var remuxableContainers = map[string]bool{
	"mkv":  true,
	"ts":   true,
	"m2ts": true,
}

// legacyContainers are old or incompatible formats
var legacyContainers = map[string]bool{
	"avi": true,
	"wmv": true,
	"flv": true,
}

// remuxFriendlyCodecs are broadly compatible codecs for which a container
// swap is enough
var remuxFriendlyCodecs = map[string]bool{
	"h264":  true,
	"hevc":  true,
	"mpeg4": true,
}

// EstimateTranscodeCost scores the media characteristics into a discrete
// cost tier. It is a pure function: the same characteristics always yield
// the same tier.
func EstimateTranscodeCost(m MediaCharacteristics) CostTier {
	score := 0

	codec := strings.ToLower(m.VideoCodec)
	if codec != "" {
		if weight, ok := videoCodecWeights[codec]; ok {
			score += weight
		} else {
			score++
		}
	}

	switch {
	case m.Height >= 2160 || m.Width >= 3840:
		score += 3
	case m.Height >= 1440 || m.Width >= 2560:
		score++
	}

	if m.DynamicRange.IsDolbyVision() {
		score += 4
	} else if m.DynamicRange.IsHDR() {
		score += 2
	}

	switch {
	case m.BitDepth >= 12:
		score += 2
	case m.BitDepth >= 10:
		score++
	}

	if m.HasImageSubtitles {
		score += 2
	}

	audioWeight := 0
	audio := strings.ToLower(m.AudioCodec)
	if audio != "" && !cheapAudioCodecs[audio] {
		audioWeight = 1
		if m.AudioChannels > 6 {
			audioWeight++
		}
	}
	score += audioWeight

	if score <= 0 {
		return remuxPotential(m)
	}

	switch {
	case score <= costScoreLowMax:
		return CostLow
	case score <= costScoreMediumMax:
		return CostMedium
	case score <= costScoreHighMax:
		return CostHigh
	default:
		return CostExtreme
	}
}

// remuxPotential resolves the zero-score case: content cheap enough that a
// container swap may be all that is needed.
func remuxPotential(m MediaCharacteristics) CostTier {
	container := strings.ToLower(m.Container)
	codec := strings.ToLower(m.VideoCodec)

	switch {
	case mp4Family[container]:
		return CostLow
	case remuxableContainers[container] && remuxFriendlyCodecs[codec]:
		return CostRemux
	case legacyContainers[container]:
		return CostRemux
	default:
		return CostLow
	}
}
