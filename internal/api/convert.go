package api

import (
	"time"

	"evprobe/internal/media/ffprobe"
	"evprobe/internal/probecache"
)

// FromStream converts a probed stream into its transport form.
func FromStream(stream ffprobe.Stream) StreamView {
	return StreamView{
		Index:           ptr[int](stream.Index()),
		Type:            str(stream.Type()),
		CodecName:       str(stream.CodecName()),
		CodecLongName:   str(stream.CodecLongName()),
		Profile:         str(stream.Profile()),
		Width:           ptr[int](stream.Width()),
		Height:          ptr[int](stream.Height()),
		PixelFormat:     str(stream.PixelFormat()),
		BitDepth:        ptr[int](stream.BitDepth()),
		SampleRate:      ptr[int](stream.SampleRate()),
		Channels:        ptr[int](stream.Channels()),
		DurationSeconds: ptr[float64](stream.Duration()),
		BitRate:         ptr[int64](stream.BitRate()),
	}
}

// FromStreams converts streams preserving order.
func FromStreams(streams []ffprobe.Stream) []StreamView {
	out := make([]StreamView, 0, len(streams))
	for _, stream := range streams {
		out = append(out, FromStream(stream))
	}
	return out
}

// NewStreamsResponse lists streams for file along with per-type counts.
func NewStreamsResponse(file string, streams []ffprobe.Stream) StreamsResponse {
	result := ffprobe.Result{Streams: streams}
	return StreamsResponse{
		File:         file,
		VideoStreams: result.VideoStreamCount(),
		AudioStreams: result.AudioStreamCount(),
		Streams:      FromStreams(streams),
	}
}

// FromFormat converts a container format record.
func FromFormat(format ffprobe.Format) FormatView {
	return FormatView{
		FilePath:        str(format.FilePath()),
		FormatName:      str(format.FormatName()),
		FormatLongName:  str(format.FormatLongName()),
		StreamCount:     ptr[int](format.StreamCount()),
		DurationSeconds: ptr[float64](format.Duration()),
		SizeBytes:       ptr[int64](format.Size()),
		BitRate:         ptr[int64](format.BitRate()),
	}
}

// FromCacheEntry summarises a cache entry relative to now.
func FromCacheEntry(entry probecache.Entry, now time.Time) CacheEntry {
	view := CacheEntry{
		Key:        entry.Key,
		Streams:    len(entry.Value.Streams),
		HasFormat:  entry.Value.Format != nil,
		StoredAt:   FormatTime(entry.StoredAt),
		ExpiresAt:  FormatTime(entry.ExpiresAt),
		Expired:    entry.Expired(now),
		Indefinite: entry.Indefinite(),
	}
	if _, key, ok := probecache.ParseKey(entry.Key); ok {
		view.Identity = key.Identity
		view.Selector = key.Selector
	}
	return view
}

// FromCacheEntries converts entries preserving order.
func FromCacheEntries(entries []probecache.Entry, now time.Time) []CacheEntry {
	out := make([]CacheEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromCacheEntry(entry, now))
	}
	return out
}

// FormatTime renders t for API payloads; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func ptr[T any](value T, ok bool) *T {
	if !ok {
		return nil
	}
	return &value
}

func str(value string, ok bool) string {
	if !ok {
		return ""
	}
	return value
}
