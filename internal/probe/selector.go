package probe

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"evprobe/internal/media/ffprobe"
	"evprobe/internal/services"
)

// DefaultSelector is used when a caller supplies none.
const DefaultSelector = "v:0"

// ErrInvalidSelector reports a selector that is not "<type>:<index>".
var ErrInvalidSelector = fmt.Errorf("%w: invalid stream selector", services.ErrValidation)

// StreamKind filters streams by codec type.
type StreamKind int

const (
	// KindNone matches no stream; unknown type codes map here.
	KindNone StreamKind = iota
	KindAny
	KindVideo
	KindAudio
	KindSubtitle
	KindData
	KindAttachment
)

var kindByCode = map[string]StreamKind{
	"v": KindVideo,
	"a": KindAudio,
	"i": KindAny,
	"s": KindSubtitle,
	"d": KindData,
	"t": KindAttachment,
}

var kindCodes = map[StreamKind]string{
	KindVideo:      "v",
	KindAudio:      "a",
	KindAny:        "i",
	KindSubtitle:   "s",
	KindData:       "d",
	KindAttachment: "t",
}

var kindCodecTypes = map[StreamKind]string{
	KindVideo:      ffprobe.CodecTypeVideo,
	KindAudio:      ffprobe.CodecTypeAudio,
	KindSubtitle:   ffprobe.CodecTypeSubtitle,
	KindData:       ffprobe.CodecTypeData,
	KindAttachment: ffprobe.CodecTypeAttachment,
}

// CodecType returns the ffprobe codec_type the kind matches. KindAny and
// KindNone return "any" and "none".
func (k StreamKind) CodecType() string {
	switch k {
	case KindAny:
		return "any"
	case KindNone:
		return "none"
	}
	return kindCodecTypes[k]
}

func (k StreamKind) String() string {
	return k.CodecType()
}

// Matches reports whether stream passes the kind filter.
func (k StreamKind) Matches(stream ffprobe.Stream) bool {
	switch k {
	case KindAny:
		return true
	case KindNone:
		return false
	}
	return stream.IsType(kindCodecTypes[k])
}

// Selector addresses the Index-th stream of a given Kind.
type Selector struct {
	Kind  StreamKind
	Index int
	code  string
}

// ParseSelector parses "<type>:<index>" where index is an unsigned decimal.
// An unrecognised type yields KindNone. Whitespace anywhere, a missing colon,
// an empty type and a signed or non-numeric index are rejected.
func ParseSelector(raw string) (Selector, error) {
	if strings.ContainsFunc(raw, unicode.IsSpace) {
		return Selector{}, fmt.Errorf("%w %q: whitespace is not allowed", ErrInvalidSelector, raw)
	}
	code, indexText, ok := strings.Cut(raw, ":")
	if !ok {
		return Selector{}, fmt.Errorf("%w %q: expected <type>:<index>", ErrInvalidSelector, raw)
	}
	if code == "" {
		return Selector{}, fmt.Errorf("%w %q: missing stream type", ErrInvalidSelector, raw)
	}
	if indexText == "" || strings.ContainsFunc(indexText, func(r rune) bool { return r < '0' || r > '9' }) {
		return Selector{}, fmt.Errorf("%w %q: index must be an unsigned integer", ErrInvalidSelector, raw)
	}
	index, err := strconv.Atoi(indexText)
	if err != nil {
		return Selector{}, fmt.Errorf("%w %q: index out of range", ErrInvalidSelector, raw)
	}
	kind, known := kindByCode[code]
	if !known {
		kind = KindNone
	}
	return Selector{Kind: kind, Index: index, code: code}, nil
}

// String renders the selector in "<type>:<index>" form.
func (s Selector) String() string {
	code := s.code
	if code == "" {
		code = kindCodes[s.Kind]
	}
	return code + ":" + strconv.Itoa(s.Index)
}

// Find scans streams in order, counting only those matching the selector's
// kind, and returns the one at Index.
func (s Selector) Find(streams []ffprobe.Stream) (ffprobe.Stream, bool) {
	count := 0
	for _, stream := range streams {
		if !s.Kind.Matches(stream) {
			continue
		}
		if count == s.Index {
			return stream, true
		}
		count++
	}
	return ffprobe.Stream{}, false
}
