package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"evprobe/internal/media/ffprobe"
)

// kindLabel turns an ffprobe codec_type into a display label.
func kindLabel(codecType string) string {
	codecType = strings.TrimSpace(codecType)
	if codecType == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(codecType)
}

func streamLabel(stream ffprobe.Stream) string {
	codecType, _ := stream.Type()
	return kindLabel(codecType)
}

// streamShape summarises the type specific geometry of a stream.
func streamShape(stream ffprobe.Stream) string {
	if width, ok := stream.Width(); ok {
		if height, ok := stream.Height(); ok {
			return fmt.Sprintf("%dx%d", width, height)
		}
		return fmt.Sprintf("%dx?", width)
	}
	if channels, ok := stream.Channels(); ok {
		if rate, ok := stream.SampleRate(); ok {
			return fmt.Sprintf("%dch @ %s", channels, humanize.SIWithDigits(float64(rate), 1, "Hz"))
		}
		return fmt.Sprintf("%dch", channels)
	}
	return "-"
}

func formatSeconds(seconds float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3fs", seconds)
}

func formatBitRate(bitRate int64, ok bool) string {
	if !ok || bitRate <= 0 {
		return "-"
	}
	return humanize.SIWithDigits(float64(bitRate), 1, "b/s")
}

func formatSize(size int64, ok bool) string {
	if !ok || size < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(size))
}

func valueOrDash(value string, ok bool) string {
	if !ok || strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
