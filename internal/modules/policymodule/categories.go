package policymodule

// supportLevel grades a category's capability for a feature family
type supportLevel int

const (
	supportNone supportLevel = iota
	supportPartial
	supportFull
)

// categoryTraits holds the hand-curated compatibility facts for one client
// category. Rules consult this table instead of branching per category.
type categoryTraits struct {
	// blockedContainers the category cannot play regardless of codec.
	// The fix is a container change, so remux remains viable.
	blockedContainers map[string]bool

	// codecContainerBlocks maps container -> codecs the category cannot
	// play inside that container. The fix is a codec change.
	codecContainerBlocks map[string]map[string]bool

	// tenBitSoftwareDecode and twelveBitSoftwareDecode mark categories with
	// full software decode paths for deep-color content.
	tenBitSoftwareDecode    bool
	twelveBitSoftwareDecode bool

	// losslessAudio grades decode/passthrough of lossless and high-bitrate
	// audio codecs.
	losslessAudio supportLevel

	// hdr grades the HDR pipeline, Dolby Vision included.
	hdr supportLevel

	// defaultBitrateCap is the category's default bandwidth ceiling in
	// bits/sec; zero means uncapped.
	defaultBitrateCap int64
}

// categoryTable is the advisor's static compatibility knowledge, one row per
// client category.
var categoryTable = map[ClientCategory]categoryTraits{
	CategoryWeb: {
		blockedContainers: map[string]bool{
			"mkv": true, "avi": true, "wmv": true, "flv": true,
		},
		codecContainerBlocks: map[string]map[string]bool{
			"mp4":  {"mpeg2video": true, "vc1": true},
			"webm": {"h264": true, "hevc": true},
		},
		losslessAudio:     supportNone,
		hdr:               supportPartial,
		defaultBitrateCap: 20_000_000,
	},
	CategoryMobile: {
		blockedContainers: map[string]bool{
			"avi": true, "wmv": true, "flv": true,
		},
		codecContainerBlocks: map[string]map[string]bool{
			"mkv": {"vc1": true, "mpeg2video": true},
		},
		losslessAudio:     supportNone,
		hdr:               supportPartial,
		defaultBitrateCap: 10_000_000,
	},
	CategoryTV: {
		blockedContainers: map[string]bool{
			"flv": true,
		},
		codecContainerBlocks: map[string]map[string]bool{},
		losslessAudio:        supportPartial,
		hdr:                  supportFull,
		defaultBitrateCap:    40_000_000,
	},
	CategoryStick: {
		blockedContainers: map[string]bool{
			"avi": true, "wmv": true,
		},
		codecContainerBlocks: map[string]map[string]bool{
			"mkv": {"mpeg2video": true},
		},
		losslessAudio:     supportPartial,
		hdr:               supportPartial,
		defaultBitrateCap: 25_000_000,
	},
	CategoryConsole: {
		blockedContainers: map[string]bool{
			"flv": true, "wmv": true,
		},
		codecContainerBlocks: map[string]map[string]bool{
			"mp4": {"vp9": true},
		},
		losslessAudio:     supportPartial,
		hdr:               supportPartial,
		defaultBitrateCap: 40_000_000,
	},
	CategoryDesktop: {
		blockedContainers:       map[string]bool{},
		codecContainerBlocks:    map[string]map[string]bool{},
		tenBitSoftwareDecode:    true,
		twelveBitSoftwareDecode: true,
		losslessAudio:           supportFull,
		hdr:                     supportFull,
		defaultBitrateCap:       0,
	},
	CategoryUnknown: {
		blockedContainers:    map[string]bool{},
		codecContainerBlocks: map[string]map[string]bool{},
		losslessAudio:        supportPartial,
		hdr:                  supportPartial,
		defaultBitrateCap:    0,
	},
}

// traitsFor returns the trait row for a category, falling back to the
// unknown row for unrecognized categories.
func traitsFor(category ClientCategory) categoryTraits {
	if traits, ok := categoryTable[category]; ok {
		return traits
	}
	return categoryTable[CategoryUnknown]
}

// losslessAudioCodecs are audio codecs that commonly require passthrough or
// an expensive software decode.
var losslessAudioCodecs = map[string]bool{
	"truehd": true,
	"dtshd":  true,
	"dts-hd": true,
	"flac":   true,
	"pcm":    true,
}

// premiumLosslessCodecs are the subset that even partial-support categories
// cannot handle.
var premiumLosslessCodecs = map[string]bool{
	"truehd": true,
	"dtshd":  true,
	"dts-hd": true,
}

// baselineSeed holds the starting confidence maps for a freshly classified
// client. Values reflect broad ecosystem knowledge, refined later by the
// learning loop.
type baselineSeed struct {
	codecs     map[string]float64
	containers map[string]float64
}

var baselineSeeds = map[ClientCategory]baselineSeed{
	CategoryWeb: {
		codecs: map[string]float64{
			"h264": 0.9, "vp8": 0.85, "vp9": 0.85, "av1": 0.6,
			"hevc": 0.3, "mpeg2video": 0.1, "vc1": 0.1,
		},
		containers: map[string]float64{
			"mp4": 0.9, "webm": 0.85, "mkv": 0.15, "avi": 0.05, "ts": 0.3,
		},
	},
	CategoryMobile: {
		codecs: map[string]float64{
			"h264": 0.9, "hevc": 0.7, "vp9": 0.6, "av1": 0.4,
			"mpeg2video": 0.2,
		},
		containers: map[string]float64{
			"mp4": 0.9, "mkv": 0.5, "webm": 0.5, "avi": 0.1,
		},
	},
	CategoryTV: {
		codecs: map[string]float64{
			"h264": 0.9, "hevc": 0.85, "vp9": 0.6, "av1": 0.5,
			"mpeg2video": 0.6, "vc1": 0.4,
		},
		containers: map[string]float64{
			"mp4": 0.9, "mkv": 0.8, "ts": 0.7, "avi": 0.3,
		},
	},
	CategoryStick: {
		codecs: map[string]float64{
			"h264": 0.9, "hevc": 0.8, "vp9": 0.7, "av1": 0.5,
		},
		containers: map[string]float64{
			"mp4": 0.9, "mkv": 0.7, "ts": 0.6,
		},
	},
	CategoryConsole: {
		codecs: map[string]float64{
			"h264": 0.9, "hevc": 0.7, "mpeg2video": 0.5,
		},
		containers: map[string]float64{
			"mp4": 0.9, "mkv": 0.6, "ts": 0.5,
		},
	},
	CategoryDesktop: {
		codecs: map[string]float64{
			"h264": 0.95, "hevc": 0.9, "vp9": 0.9, "av1": 0.85,
			"mpeg2video": 0.9, "vc1": 0.8,
		},
		containers: map[string]float64{
			"mp4": 0.95, "mkv": 0.95, "webm": 0.9, "avi": 0.8, "ts": 0.8,
		},
	},
	CategoryUnknown: {
		codecs: map[string]float64{
			"h264": 0.8,
		},
		containers: map[string]float64{
			"mp4": 0.8,
		},
	},
}

// seedFor returns the baseline confidence seed for a category
func seedFor(category ClientCategory) baselineSeed {
	if seed, ok := baselineSeeds[category]; ok {
		return seed
	}
	return baselineSeeds[CategoryUnknown]
}
