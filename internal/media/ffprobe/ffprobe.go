package ffprobe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Codec types reported in a stream's codec_type field.
const (
	CodecTypeVideo      = "video"
	CodecTypeAudio      = "audio"
	CodecTypeSubtitle   = "subtitle"
	CodecTypeData       = "data"
	CodecTypeAttachment = "attachment"
)

// Result represents the parsed output from an ffprobe inspection. A zero Result
// is the empty result: no streams and no format record.
type Result struct {
	Streams []Stream `json:"streams,omitempty"`
	Format  *Format  `json:"format,omitempty"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	index         Optional[int]
	codecType     Optional[string]
	codecName     Optional[string]
	codecLongName Optional[string]
	profile       Optional[string]
	width         Optional[int]
	height        Optional[int]
	pixelFormat   Optional[string]
	bitDepth      Optional[int]
	sampleRate    Optional[int]
	channels      Optional[int]
	duration      Optional[float64]
	bitRate       Optional[int64]
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	filename       Optional[string]
	formatName     Optional[string]
	formatLongName Optional[string]
	streamCount    Optional[int]
	duration       Optional[float64]
	size           Optional[int64]
	bitRate        Optional[int64]
}

// Parse decodes raw ffprobe JSON (-print_format json -show_format -show_streams).
// Missing keys are valid; only structurally malformed documents fail.
func Parse(data []byte) (Result, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Result{}, errors.New("ffprobe parse: empty output")
	}
	var result Result
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// NewStream builds a Stream from an ffprobe-style key/value record, e.g.
// {"codec_type": "video", "width": 1920}. Values may be Go numbers, numeric
// strings, or json.Number; unconvertible values are treated as unavailable.
func NewStream(raw map[string]any) Stream {
	return Stream{
		index:         intField(raw, "index"),
		codecType:     stringField(raw, "codec_type"),
		codecName:     stringField(raw, "codec_name"),
		codecLongName: stringField(raw, "codec_long_name"),
		profile:       stringField(raw, "profile"),
		width:         intField(raw, "width"),
		height:        intField(raw, "height"),
		pixelFormat:   stringField(raw, "pix_fmt"),
		bitDepth:      intField(raw, "bits_per_raw_sample"),
		sampleRate:    intField(raw, "sample_rate"),
		channels:      intField(raw, "channels"),
		duration:      floatField(raw, "duration"),
		bitRate:       int64Field(raw, "bit_rate"),
	}
}

// NewFormat builds a Format from an ffprobe-style key/value record.
func NewFormat(raw map[string]any) Format {
	return Format{
		filename:       stringField(raw, "filename"),
		formatName:     stringField(raw, "format_name"),
		formatLongName: stringField(raw, "format_long_name"),
		streamCount:    intField(raw, "nb_streams"),
		duration:       floatField(raw, "duration"),
		size:           int64Field(raw, "size"),
		bitRate:        int64Field(raw, "bit_rate"),
	}
}

// Index returns the container-level stream index.
func (s Stream) Index() (int, bool) { return s.index.Get() }

// Type returns the codec type (video, audio, subtitle, data, attachment).
func (s Stream) Type() (string, bool) { return s.codecType.Get() }

// CodecName returns the short codec name, e.g. h264.
func (s Stream) CodecName() (string, bool) { return s.codecName.Get() }

// CodecLongName returns the descriptive codec name.
func (s Stream) CodecLongName() (string, bool) { return s.codecLongName.Get() }

// Profile returns the codec profile.
func (s Stream) Profile() (string, bool) { return s.profile.Get() }

// Width returns the frame width in pixels.
func (s Stream) Width() (int, bool) { return s.width.Get() }

// Height returns the frame height in pixels.
func (s Stream) Height() (int, bool) { return s.height.Get() }

// PixelFormat returns the pixel format, e.g. yuv420p.
func (s Stream) PixelFormat() (string, bool) { return s.pixelFormat.Get() }

// BitDepth returns bits_per_raw_sample for video or thumbnail streams.
func (s Stream) BitDepth() (int, bool) { return s.bitDepth.Get() }

// SampleRate returns the audio sample rate in Hz.
func (s Stream) SampleRate() (int, bool) { return s.sampleRate.Get() }

// Channels returns the audio channel count.
func (s Stream) Channels() (int, bool) { return s.channels.Get() }

// Duration returns the stream duration in seconds.
func (s Stream) Duration() (float64, bool) { return s.duration.Get() }

// BitRate returns the stream bit rate in bits per second.
func (s Stream) BitRate() (int64, bool) { return s.bitRate.Get() }

// IsType reports whether the stream's codec type equals codecType.
func (s Stream) IsType(codecType string) bool {
	value, ok := s.codecType.Get()
	return ok && value == codecType
}

// Fields returns the available fields keyed by their ffprobe names.
func (s Stream) Fields() map[string]any {
	out := make(map[string]any, 13)
	putInt(out, "index", s.index)
	putString(out, "codec_type", s.codecType)
	putString(out, "codec_name", s.codecName)
	putString(out, "codec_long_name", s.codecLongName)
	putString(out, "profile", s.profile)
	putInt(out, "width", s.width)
	putInt(out, "height", s.height)
	putString(out, "pix_fmt", s.pixelFormat)
	putIntString(out, "bits_per_raw_sample", s.bitDepth)
	putIntString(out, "sample_rate", s.sampleRate)
	putInt(out, "channels", s.channels)
	putFloatString(out, "duration", s.duration)
	putInt64String(out, "bit_rate", s.bitRate)
	return out
}

// MarshalJSON encodes the stream using ffprobe's key names.
func (s Stream) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

// UnmarshalJSON decodes an ffprobe stream record.
func (s *Stream) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	*s = NewStream(raw)
	return nil
}

// FilePath returns the path ffprobe reported for the container.
func (f Format) FilePath() (string, bool) { return f.filename.Get() }

// FormatName returns the short container format name(s), e.g. "matroska,webm".
func (f Format) FormatName() (string, bool) { return f.formatName.Get() }

// FormatLongName returns the descriptive container format name.
func (f Format) FormatLongName() (string, bool) { return f.formatLongName.Get() }

// StreamCount returns nb_streams.
func (f Format) StreamCount() (int, bool) { return f.streamCount.Get() }

// Duration returns the container duration in seconds.
func (f Format) Duration() (float64, bool) { return f.duration.Get() }

// Size returns the container size in bytes.
func (f Format) Size() (int64, bool) { return f.size.Get() }

// BitRate returns the container bit rate in bits per second.
func (f Format) BitRate() (int64, bool) { return f.bitRate.Get() }

// Fields returns the available fields keyed by their ffprobe names.
func (f Format) Fields() map[string]any {
	out := make(map[string]any, 7)
	putString(out, "filename", f.filename)
	putString(out, "format_name", f.formatName)
	putString(out, "format_long_name", f.formatLongName)
	putInt(out, "nb_streams", f.streamCount)
	putFloatString(out, "duration", f.duration)
	putInt64String(out, "size", f.size)
	putInt64String(out, "bit_rate", f.bitRate)
	return out
}

// MarshalJSON encodes the format using ffprobe's key names.
func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Fields())
}

// UnmarshalJSON decodes an ffprobe format record.
func (f *Format) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	*f = NewFormat(raw)
	return nil
}

// IsEmpty reports whether the result carries neither streams nor a format record.
func (r Result) IsEmpty() bool {
	return len(r.Streams) == 0 && r.Format == nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countType(CodecTypeVideo)
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countType(CodecTypeAudio)
}

func (r Result) countType(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if stream.IsType(codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	if r.Format == nil {
		return 0
	}
	return r.Format.duration.Or(0)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	if r.Format == nil {
		return 0
	}
	rate := r.Format.bitRate.Or(0)
	if rate < 0 {
		return 0
	}
	return rate
}

// SizeBytes returns the container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	if r.Format == nil {
		return 0
	}
	size := r.Format.size.Or(0)
	if size < 0 {
		return 0
	}
	return size
}
