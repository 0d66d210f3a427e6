package probe

import (
	"errors"
	"testing"

	"evprobe/internal/media/ffprobe"
	"evprobe/internal/services"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		raw   string
		kind  StreamKind
		index int
		text  string
	}{
		{"v:0", KindVideo, 0, "v:0"},
		{"a:2", KindAudio, 2, "a:2"},
		{"i:1", KindAny, 1, "i:1"},
		{"s:3", KindSubtitle, 3, "s:3"},
		{"a:007", KindAudio, 7, "a:7"},
		{"d:0", KindData, 0, "d:0"},
		{"t:0", KindAttachment, 0, "t:0"},
		{"x:0", KindNone, 0, "x:0"},
	}
	for _, tt := range tests {
		sel, err := ParseSelector(tt.raw)
		if err != nil {
			t.Fatalf("ParseSelector(%q): %v", tt.raw, err)
		}
		if sel.Kind != tt.kind || sel.Index != tt.index {
			t.Fatalf("ParseSelector(%q) = %+v", tt.raw, sel)
		}
		if sel.String() != tt.text {
			t.Fatalf("String() = %q, want %q", sel.String(), tt.text)
		}
	}
}

func TestParseSelectorRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"x", "", "v", ":0", "v:abc", "v:-1", "v:", "v:+1", " v:0", "v:0 ", "v: 1", "v :1", "\tv:0", "v:1e2"} {
		_, err := ParseSelector(raw)
		if !errors.Is(err, ErrInvalidSelector) {
			t.Fatalf("ParseSelector(%q) = %v, want ErrInvalidSelector", raw, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ParseSelector(%q) should classify as validation", raw)
		}
	}
}

func TestKindNoneMatchesNothing(t *testing.T) {
	streams := []ffprobe.Stream{
		ffprobe.NewStream(map[string]any{"codec_type": "video"}),
		ffprobe.NewStream(map[string]any{}),
	}
	if _, ok := mustSelector(t, "x:0").Find(streams); ok {
		t.Fatal("unknown type code must not match")
	}
	if _, ok := mustSelector(t, "i:1").Find(streams); !ok {
		t.Fatal("wildcard should match a stream without codec_type")
	}
}

func mustSelector(t *testing.T, raw string) Selector {
	t.Helper()
	sel, err := ParseSelector(raw)
	if err != nil {
		t.Fatalf("ParseSelector(%q): %v", raw, err)
	}
	return sel
}
