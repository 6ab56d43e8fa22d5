package policymodule

import (
	"strings"

	"github.com/mediamesh/playadvisor/internal/database"
)

// DeviceDescriptor is the raw session/device identity supplied by the host
// platform on first contact.
type DeviceDescriptor struct {
	DeviceID   string `json:"device_id" binding:"required"`
	DeviceName string `json:"device_name"`
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	UserAgent  string `json:"user_agent"`

	// MaxBitrate is an optional declared bandwidth ceiling in bits/sec.
	MaxBitrate int64 `json:"max_bitrate"`
}

var browserMarkers = []string{"chrome", "firefox", "safari", "edge", "opera", "mozilla"}

var categoryMarkers = []struct {
	category ClientCategory
	markers  []string
}{
	{CategoryStick, []string{"roku", "chromecast", "firetv", "fire tv", "shield"}},
	{CategoryTV, []string{"smarttv", "smart tv", "tizen", "webos", "bravia", "androidtv", "android tv", "appletv", "apple tv", "tvos"}},
	{CategoryConsole, []string{"playstation", "xbox", "nintendo"}},
	{CategoryMobile, []string{"iphone", "ipad", "android", "mobile"}},
	{CategoryDesktop, []string{"windows app", "macos app", "desktop", "electron", "kodi", "vlc", "mpv"}},
}

// ClassifyDevice maps a device descriptor to a client category using
// user-agent and app-name markers. Unrecognized devices land in the unknown
// category, which carries neutral traits.
func ClassifyDevice(desc DeviceDescriptor) ClientCategory {
	haystack := strings.ToLower(desc.UserAgent + " " + desc.AppName + " " + desc.DeviceName)

	for _, entry := range categoryMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(haystack, marker) {
				return entry.category
			}
		}
	}

	// Plain browsers come last: TV and mobile user agents often embed
	// browser engine tokens.
	for _, marker := range browserMarkers {
		if strings.Contains(haystack, marker) {
			return CategoryWeb
		}
	}

	return CategoryUnknown
}

// SeedProfile builds a new client profile for a first-contact device, with
// baseline confidence seeded from the category table.
func SeedProfile(desc DeviceDescriptor) *database.ClientProfile {
	category := ClassifyDevice(desc)
	seed := seedFor(category)

	codecs := make(database.ConfidenceMap, len(seed.codecs))
	for k, v := range seed.codecs {
		codecs[k] = v
	}
	containers := make(database.ConfidenceMap, len(seed.containers))
	for k, v := range seed.containers {
		containers[k] = v
	}

	return &database.ClientProfile{
		DeviceID:            desc.DeviceID,
		DisplayName:         desc.DeviceName,
		AppName:             desc.AppName,
		AppVersion:          desc.AppVersion,
		Category:            string(category),
		CodecConfidence:     codecs,
		ContainerConfidence: containers,
		MaxBitrate:          desc.MaxBitrate,
		ReliabilityScore:    0.5,
	}
}
