package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ConfidenceMap maps a lowercase codec or container name to a confidence
// scalar in [0,1]. A missing key means "no data," which is distinct from a
// recorded 0.0 ("confirmed unsupported"). Stored as JSON text.
type ConfidenceMap map[string]float64

// Value implements driver.Valuer
func (m ConfidenceMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *ConfidenceMap) Scan(value interface{}) error {
	if value == nil {
		*m = ConfidenceMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ConfidenceMap", value)
	}
	if len(data) == 0 {
		*m = ConfidenceMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// StringList is a JSON-serialized list of strings, used for transcode
// trigger reasons on outcomes.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// ClientProfile represents one physical device or app installation and its
// learned playback capabilities. Created on first contact with seeded
// baseline confidence; mutated only by the learning component.
type ClientProfile struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	DeviceID    string `gorm:"uniqueIndex;not null" json:"device_id"`
	DisplayName string `json:"display_name"`
	AppName     string `json:"app_name"`
	AppVersion  string `json:"app_version"`
	Category    string `gorm:"index" json:"category"`

	CodecConfidence     ConfidenceMap `gorm:"type:text" json:"codec_confidence"`
	ContainerConfidence ConfidenceMap `gorm:"type:text" json:"container_confidence"`

	// MaxBitrate is the known bandwidth ceiling in bits/sec; zero means
	// unknown.
	MaxBitrate int64 `json:"max_bitrate"`

	// ReliabilityScore is an informational aggregate in [0,1].
	ReliabilityScore float64 `json:"reliability_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaybackOutcome records one observed playback session. Created at playback
// start, finalized at stop, kept until pruned by the retention policy.
type PlaybackOutcome struct {
	ID       string `gorm:"primaryKey" json:"id"`
	DeviceID string `gorm:"index;not null" json:"device_id"`

	VideoCodec string `json:"video_codec"`
	AudioCodec string `json:"audio_codec"`
	Container  string `json:"container"`

	// PlayMethod is the observed playback method: direct_play,
	// direct_stream, transcode, or unknown.
	PlayMethod string `json:"play_method"`

	PlayedTicks int64 `json:"played_ticks"`
	TotalTicks  int64 `json:"total_ticks"`

	// Classification resolves at playback stop: unknown, success,
	// suspected_failure, or transcoded.
	Classification string `gorm:"index" json:"classification"`

	// TranscodeReasons records what triggered a transcode, when known.
	TranscodeReasons StringList `gorm:"type:text" json:"transcode_reasons"`

	// PolicySnapshot holds the JSON-encoded policy active during the session.
	PolicySnapshot string `gorm:"type:text" json:"policy_snapshot"`

	StartedAt time.Time  `gorm:"index" json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
