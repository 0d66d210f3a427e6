package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// StreamView describes one stream in a transport-friendly format.
type StreamView struct {
	Index           *int     `json:"index,omitempty"`
	Type            string   `json:"type,omitempty"`
	CodecName       string   `json:"codecName,omitempty"`
	CodecLongName   string   `json:"codecLongName,omitempty"`
	Profile         string   `json:"profile,omitempty"`
	Width           *int     `json:"width,omitempty"`
	Height          *int     `json:"height,omitempty"`
	PixelFormat     string   `json:"pixelFormat,omitempty"`
	BitDepth        *int     `json:"bitDepth,omitempty"`
	SampleRate      *int     `json:"sampleRate,omitempty"`
	Channels        *int     `json:"channels,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	BitRate         *int64   `json:"bitRate,omitempty"`
}

// FormatView describes container-level metadata.
type FormatView struct {
	FilePath        string   `json:"filePath,omitempty"`
	FormatName      string   `json:"formatName,omitempty"`
	FormatLongName  string   `json:"formatLongName,omitempty"`
	StreamCount     *int     `json:"streamCount,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	SizeBytes       *int64   `json:"sizeBytes,omitempty"`
	BitRate         *int64   `json:"bitRate,omitempty"`
}

// StreamResponse answers a single-stream lookup.
type StreamResponse struct {
	File     string     `json:"file"`
	Selector string     `json:"selector"`
	Stream   StreamView `json:"stream"`
}

// StreamsResponse lists every stream of a file.
type StreamsResponse struct {
	File         string       `json:"file"`
	VideoStreams int          `json:"video_streams"`
	AudioStreams int          `json:"audio_streams"`
	Streams      []StreamView `json:"streams"`
}

// FormatResponse answers a format lookup.
type FormatResponse struct {
	File   string     `json:"file"`
	Format FormatView `json:"format"`
}

// CacheEntry summarises a stored probe result.
type CacheEntry struct {
	Key        string `json:"key"`
	Identity   string `json:"identity,omitempty"`
	Selector   string `json:"selector,omitempty"`
	Streams    int    `json:"streams"`
	HasFormat  bool   `json:"hasFormat"`
	StoredAt   string `json:"storedAt"`
	ExpiresAt  string `json:"expiresAt,omitempty"`
	Expired    bool   `json:"expired"`
	Indefinite bool   `json:"indefinite"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// HealthResponse is served by /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	FFprobe string `json:"ffprobe"`
}
