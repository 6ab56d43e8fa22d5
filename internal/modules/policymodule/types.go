// Package policymodule implements the playback policy advisor: a rule-based
// decision engine with a confidence learning loop. The computed policy is a
// recommendation for the host platform, never a command.
package policymodule

import (
	"strings"
)

// TriState is a three-valued flag: yes, no, or no opinion. The zero value is
// "no opinion," which must stay distinguishable from an explicit false.
type TriState int

const (
	TriUnset TriState = iota
	TriYes
	TriNo
)

// Defined reports whether the flag expresses an opinion
func (t TriState) Defined() bool {
	return t != TriUnset
}

// Bool resolves the flag, falling back to def when no opinion was expressed
func (t TriState) Bool(def bool) bool {
	switch t {
	case TriYes:
		return true
	case TriNo:
		return false
	default:
		return def
	}
}

func (t TriState) String() string {
	switch t {
	case TriYes:
		return "yes"
	case TriNo:
		return "no"
	default:
		return "unset"
	}
}

// Severity is a rule's certainty tier, used to arbitrate conflicting rule
// opinions: Suggest < Recommend < Require.
type Severity int

const (
	SeveritySuggest Severity = iota
	SeverityRecommend
	SeverityRequire
)

func (s Severity) String() string {
	switch s {
	case SeverityRequire:
		return "require"
	case SeverityRecommend:
		return "recommend"
	default:
		return "suggest"
	}
}

// RuleFinding is the output of one compatibility rule. Findings are
// ephemeral: produced and consumed within a single decision call.
type RuleFinding struct {
	DirectPlay   TriState
	DirectStream TriState
	Transcode    TriState

	// BitrateCap is a recommended ceiling in bits/sec; zero means none.
	BitrateCap int64

	Severity  Severity
	Rationale string
}

// PlaybackPolicy is the decision engine's output
type PlaybackPolicy struct {
	AllowDirectPlay   bool     `json:"allow_direct_play"`
	AllowDirectStream bool     `json:"allow_direct_stream"`
	AllowTranscoding  bool     `json:"allow_transcoding"`
	BitrateCap        int64    `json:"bitrate_cap,omitempty"`
	Confidence        float64  `json:"confidence"`
	Rationale         []string `json:"rationale,omitempty"`
}

// DefaultPolicy returns the canonical neutral pass-through policy: all
// methods permitted, no cap, confidence exactly zero. It is only ever
// returned explicitly, never assembled from partial computation.
func DefaultPolicy() PlaybackPolicy {
	return PlaybackPolicy{
		AllowDirectPlay:   true,
		AllowDirectStream: true,
		AllowTranscoding:  true,
	}
}

// IsDefault reports whether the policy is the canonical neutral value
func (p PlaybackPolicy) IsDefault() bool {
	return p.AllowDirectPlay && p.AllowDirectStream && p.AllowTranscoding &&
		p.BitrateCap == 0 && p.Confidence == 0
}

// DynamicRange identifies the dynamic range type of a video stream
type DynamicRange string

const (
	RangeSDR              DynamicRange = "sdr"
	RangeHDR10            DynamicRange = "hdr10"
	RangeHDR10Plus        DynamicRange = "hdr10+"
	RangeHLG              DynamicRange = "hlg"
	RangeDolbyVision      DynamicRange = "dovi"
	RangeDolbyVisionHDR10 DynamicRange = "dovi_hdr10"
	RangeDolbyVisionSDR   DynamicRange = "dovi_sdr"
)

// IsHDR reports whether the range is anything other than SDR
func (r DynamicRange) IsHDR() bool {
	return r != "" && r != RangeSDR
}

// IsDolbyVision reports whether the range is any Dolby Vision variant
func (r DynamicRange) IsDolbyVision() bool {
	return strings.HasPrefix(string(r), string(RangeDolbyVision))
}

// MediaCharacteristics describes one media source being evaluated. All
// numeric fields are optional; zero means unknown and degrades to "no
// opinion" rather than an error.
type MediaCharacteristics struct {
	VideoCodec   string       `json:"video_codec"`
	Container    string       `json:"container"`
	Bitrate      int64        `json:"bitrate"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	BitDepth     int          `json:"bit_depth"`
	DynamicRange DynamicRange `json:"dynamic_range"`
	VideoProfile string       `json:"video_profile"`

	AudioCodec    string `json:"audio_codec"`
	AudioChannels int    `json:"audio_channels"`

	HasImageSubtitles bool `json:"has_image_subtitles"`
	HasTextSubtitles  bool `json:"has_text_subtitles"`

	// costTier caches the estimator result; set once on first use.
	costTier *CostTier
}

// TranscodeCost returns the estimated transcode cost tier, computing and
// caching it on first call.
func (m *MediaCharacteristics) TranscodeCost() CostTier {
	if m.costTier == nil {
		tier := EstimateTranscodeCost(*m)
		m.costTier = &tier
	}
	return *m.costTier
}

// CostTier is a discrete bucket estimating transcoding expense
type CostTier int

const (
	CostRemux CostTier = iota
	CostLow
	CostMedium
	CostHigh
	CostExtreme
)

func (c CostTier) String() string {
	switch c {
	case CostRemux:
		return "remux"
	case CostLow:
		return "low"
	case CostMedium:
		return "medium"
	case CostHigh:
		return "high"
	case CostExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// PlayMethod is the observed playback method of a session
type PlayMethod string

const (
	MethodDirectPlay   PlayMethod = "direct_play"
	MethodDirectStream PlayMethod = "direct_stream"
	MethodTranscode    PlayMethod = "transcode"
	MethodUnknown      PlayMethod = "unknown"
)

// OutcomeClass is the resolved classification of a playback outcome
type OutcomeClass string

const (
	OutcomeUnknown          OutcomeClass = "unknown"
	OutcomeSuccess          OutcomeClass = "success"
	OutcomeFailure          OutcomeClass = "failure"
	OutcomeSuspectedFailure OutcomeClass = "suspected_failure"
	OutcomeTranscoded       OutcomeClass = "transcoded"
)

// ClientCategory groups devices with similar playback capabilities. Category
// traits are data, not code: adding a category is a table change.
type ClientCategory string

const (
	CategoryWeb     ClientCategory = "web"
	CategoryMobile  ClientCategory = "mobile"
	CategoryTV      ClientCategory = "tv"
	CategoryStick   ClientCategory = "stick"
	CategoryConsole ClientCategory = "console"
	CategoryDesktop ClientCategory = "desktop"
	CategoryUnknown ClientCategory = "unknown"
)

// Transcode trigger reasons recorded on outcomes
const (
	ReasonVideoCodec = "video_codec"
	ReasonAudioCodec = "audio_codec"
	ReasonContainer  = "container"
	ReasonBitrate    = "bitrate"
	ReasonSubtitles  = "subtitles"
)
