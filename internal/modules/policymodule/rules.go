package policymodule

import (
	"fmt"
	"strings"

	"github.com/mediamesh/playadvisor/internal/database"
)

// compatibilityRule is one static compatibility check. Rules are pure
// functions over the client profile and media characteristics; they never
// read confidence data and never mutate shared state. A nil result means
// "no finding."
type compatibilityRule struct {
	name     string
	evaluate func(client *database.ClientProfile, media *MediaCharacteristics) *RuleFinding
}

// ruleRegistry lists every rule in registration order. The order matters:
// among findings of equal severity, the last registered rule wins a
// contested policy dimension.
var ruleRegistry = []compatibilityRule{
	{name: "container_codec_compat", evaluate: containerCodecRule},
	{name: "bit_depth", evaluate: bitDepthRule},
	{name: "audio_passthrough", evaluate: audioPassthroughRule},
	{name: "hdr_compat", evaluate: hdrRule},
	{name: "bitrate_cap", evaluate: bitrateCapRule},
}

// tenBitHardwarePoorCodecs have near-zero hardware decode support for their
// 10-bit profiles.
var tenBitHardwarePoorCodecs = map[string]bool{
	"h264": true,
}

// containerCodecRule flags known hard container and codec-in-container
// incompatibilities. A blocked container is fixable by remuxing, so only
// direct play is disabled; a blocked codec needs a re-encode, so direct
// stream is disabled as well.
func containerCodecRule(client *database.ClientProfile, media *MediaCharacteristics) *RuleFinding {
	traits := traitsFor(ClientCategory(client.Category))
	container := strings.ToLower(media.Container)
	codec := strings.ToLower(media.VideoCodec)

	if container == "" {
		return nil
	}

	if blocked, ok := traits.codecContainerBlocks[container]; ok && codec != "" && blocked[codec] {
		return &RuleFinding{
			DirectPlay:   TriNo,
			DirectStream: TriNo,
			Transcode:    TriYes,
			Severity:     SeverityRequire,
			Rationale:    fmt.Sprintf("%s clients cannot decode %s inside %s", client.Category, codec, container),
		}
	}

	if traits.blockedContainers[container] {
		return &RuleFinding{
			DirectPlay:   TriNo,
			DirectStream: TriYes,
			Severity:     SeverityRequire,
			Rationale:    fmt.Sprintf("%s clients cannot play %s containers, remux required", client.Category, container),
		}
	}

	return nil
}

// bitDepthRule flags deep-color encodings. 10-bit profiles of codecs with
// near-zero hardware decode force a transcode; 12-bit content gets a softer
// recommendation unless the category has full software decode.
func bitDepthRule(client *database.ClientProfile, media *MediaCharacteristics) *RuleFinding {
	if media.BitDepth < 10 {
		return nil
	}
	traits := traitsFor(ClientCategory(client.Category))
	codec := strings.ToLower(media.VideoCodec)

	if media.BitDepth >= 12 {
		if traits.twelveBitSoftwareDecode {
			return nil
		}
		return &RuleFinding{
			DirectPlay: TriNo,
			Transcode:  TriYes,
			Severity:   SeverityRecommend,
			Rationale:  fmt.Sprintf("12-bit %s is unlikely to decode on %s clients", codec, client.Category),
		}
	}

	if tenBitHardwarePoorCodecs[codec] && !traits.tenBitSoftwareDecode {
		return &RuleFinding{
			DirectPlay: TriNo,
			Transcode:  TriYes,
			Severity:   SeverityRequire,
			Rationale:  fmt.Sprintf("10-bit %s has no viable hardware decode path", codec),
		}
	}

	return nil
}

// audioPassthroughRule flags lossless and high-bitrate audio codecs the
// category cannot decode or pass through. Transcoding is allowed because an
// audio-only fallback is cheap relative to video work.
func audioPassthroughRule(client *database.ClientProfile, media *MediaCharacteristics) *RuleFinding {
	audio := strings.ToLower(media.AudioCodec)
	if audio == "" || !losslessAudioCodecs[audio] {
		return nil
	}

	traits := traitsFor(ClientCategory(client.Category))
	switch traits.losslessAudio {
	case supportFull:
		return nil
	case supportPartial:
		if !premiumLosslessCodecs[audio] {
			return nil
		}
	}

	return &RuleFinding{
		Transcode: TriYes,
		Severity:  SeverityRequire,
		Rationale: fmt.Sprintf("%s clients cannot handle %s audio, audio transcode needed", client.Category, audio),
	}
}

// hdrRule flags non-SDR dynamic ranges per category: a full block where no
// HDR pipeline exists, softer findings where support is partial.
func hdrRule(client *database.ClientProfile, media *MediaCharacteristics) *RuleFinding {
	if !media.DynamicRange.IsHDR() {
		return nil
	}
	traits := traitsFor(ClientCategory(client.Category))

	switch traits.hdr {
	case supportFull:
		return nil
	case supportNone:
		return &RuleFinding{
			DirectPlay: TriNo,
			Transcode:  TriYes,
			Severity:   SeverityRequire,
			Rationale:  fmt.Sprintf("%s clients have no HDR pipeline, tone-mapped transcode required", client.Category),
		}
	}

	if media.DynamicRange.IsDolbyVision() {
		return &RuleFinding{
			DirectPlay: TriNo,
			Transcode:  TriYes,
			Severity:   SeverityRecommend,
			Rationale:  fmt.Sprintf("Dolby Vision support on %s clients is unreliable", client.Category),
		}
	}

	return &RuleFinding{
		Transcode: TriYes,
		Severity:  SeveritySuggest,
		Rationale: fmt.Sprintf("%s playback on %s clients may fall back to tone mapping", media.DynamicRange, client.Category),
	}
}

// bitrateCapRule applies the category's default bandwidth ceiling,
// independent of codec and container.
func bitrateCapRule(client *database.ClientProfile, media *MediaCharacteristics) *RuleFinding {
	traits := traitsFor(ClientCategory(client.Category))
	if traits.defaultBitrateCap <= 0 || media.Bitrate <= 0 || media.Bitrate <= traits.defaultBitrateCap {
		return nil
	}

	return &RuleFinding{
		Transcode:  TriYes,
		BitrateCap: traits.defaultBitrateCap,
		Severity:   SeveritySuggest,
		Rationale: fmt.Sprintf("media bitrate %d exceeds %s default ceiling %d",
			media.Bitrate, client.Category, traits.defaultBitrateCap),
	}
}
