package policymodule

import (
	"strings"
)

// CapabilityDocument is the host platform's capability-negotiation view of a
// policy: which playback paths to offer for this media and at what bitrate.
// Translation is pure data mapping; the host keeps final authority.
type CapabilityDocument struct {
	// PlayMethods lists the permitted methods in preference order.
	PlayMethods []PlayMethod `json:"play_methods"`

	DirectPlayProfiles  []PlaybackProfile `json:"direct_play_profiles,omitempty"`
	TranscodingProfiles []PlaybackProfile `json:"transcoding_profiles,omitempty"`

	// MaxStreamingBitrate mirrors the policy's bitrate cap; zero means
	// unlimited.
	MaxStreamingBitrate int64 `json:"max_streaming_bitrate,omitempty"`

	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// PlaybackProfile describes one container/codec combination offered to the
// host.
type PlaybackProfile struct {
	Container  string `json:"container"`
	VideoCodec string `json:"video_codec,omitempty"`
	AudioCodec string `json:"audio_codec,omitempty"`
}

// TranslatePolicy renders a policy into the host capability document for the
// evaluated media.
func TranslatePolicy(policy PlaybackPolicy, media *MediaCharacteristics) CapabilityDocument {
	doc := CapabilityDocument{
		MaxStreamingBitrate: policy.BitrateCap,
		Confidence:          policy.Confidence,
		Reason:              strings.Join(policy.Rationale, "; "),
	}

	if policy.AllowDirectPlay {
		doc.PlayMethods = append(doc.PlayMethods, MethodDirectPlay)
		if media != nil && media.Container != "" {
			doc.DirectPlayProfiles = append(doc.DirectPlayProfiles, PlaybackProfile{
				Container:  strings.ToLower(media.Container),
				VideoCodec: strings.ToLower(media.VideoCodec),
				AudioCodec: strings.ToLower(media.AudioCodec),
			})
		}
	}
	if policy.AllowDirectStream {
		doc.PlayMethods = append(doc.PlayMethods, MethodDirectStream)
		if media != nil && media.VideoCodec != "" {
			doc.DirectPlayProfiles = append(doc.DirectPlayProfiles, PlaybackProfile{
				Container:  "mp4",
				VideoCodec: strings.ToLower(media.VideoCodec),
			})
		}
	}
	if policy.AllowTranscoding {
		doc.PlayMethods = append(doc.PlayMethods, MethodTranscode)
		doc.TranscodingProfiles = append(doc.TranscodingProfiles, PlaybackProfile{
			Container:  "mp4",
			VideoCodec: "h264",
			AudioCodec: "aac",
		})
	}

	return doc
}
