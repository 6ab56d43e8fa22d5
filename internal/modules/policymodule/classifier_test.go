package policymodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name string
		desc DeviceDescriptor
		want ClientCategory
	}{
		{
			name: "chrome on linux",
			desc: DeviceDescriptor{UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36"},
			want: CategoryWeb,
		},
		{
			name: "android tv outranks its browser engine tokens",
			desc: DeviceDescriptor{UserAgent: "Mozilla/5.0 (Linux; Android 12; AndroidTV) AppleWebKit/537.36"},
			want: CategoryTV,
		},
		{
			name: "iphone outranks safari",
			desc: DeviceDescriptor{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4) Safari/604.1"},
			want: CategoryMobile,
		},
		{
			name: "roku by device name",
			desc: DeviceDescriptor{DeviceName: "Roku Ultra", AppName: "MediaPlayer"},
			want: CategoryStick,
		},
		{
			name: "playstation",
			desc: DeviceDescriptor{UserAgent: "Mozilla/5.0 (PlayStation 5)"},
			want: CategoryConsole,
		},
		{
			name: "kodi desktop app",
			desc: DeviceDescriptor{AppName: "Kodi", AppVersion: "20.2"},
			want: CategoryDesktop,
		},
		{
			name: "nothing recognizable",
			desc: DeviceDescriptor{DeviceID: "abc", DeviceName: "Receiver"},
			want: CategoryUnknown,
		},
		{
			name: "empty descriptor",
			desc: DeviceDescriptor{},
			want: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDevice(tt.desc)
			if got != tt.want {
				t.Errorf("ClassifyDevice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSeedProfile(t *testing.T) {
	desc := DeviceDescriptor{
		DeviceID:   "dev-42",
		DeviceName: "Living Room TV",
		AppName:    "MediaMesh Tizen",
		AppVersion: "3.1.0",
		MaxBitrate: 30_000_000,
	}

	profile := SeedProfile(desc)

	require.NotNil(t, profile)
	assert.Equal(t, "dev-42", profile.DeviceID)
	assert.Equal(t, string(CategoryTV), profile.Category)
	assert.Equal(t, int64(30_000_000), profile.MaxBitrate)
	assert.Equal(t, 0.5, profile.ReliabilityScore)
	assert.Equal(t, 0.85, profile.CodecConfidence["hevc"])
	assert.Equal(t, 0.8, profile.ContainerConfidence["mkv"])
}

func TestSeedProfileCopiesSeedMaps(t *testing.T) {
	a := SeedProfile(DeviceDescriptor{DeviceID: "a", UserAgent: "Chrome"})
	b := SeedProfile(DeviceDescriptor{DeviceID: "b", UserAgent: "Chrome"})

	a.CodecConfidence["h264"] = 0.1

	assert.Equal(t, 0.9, b.CodecConfidence["h264"], "seed maps must not be shared between profiles")
	assert.Equal(t, 0.9, seedFor(CategoryWeb).codecs["h264"], "mutation must not leak into the seed table")
}
