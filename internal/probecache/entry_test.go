package probecache

import (
	"testing"
	"time"
)

func TestMakeKeyEscapesComponents(t *testing.T) {
	cases := []struct {
		namespace string
		key       Key
		want      string
	}{
		{"", Key{Identity: "File:Clip.webm", Selector: "v:0"}, "EmbedVideo:ffprobe:File%3AClip.webm:v%3A0"},
		{"Wiki", Key{Identity: "/tmp/a b.mkv", Selector: "a:1"}, "Wiki:ffprobe:%2Ftmp%2Fa+b.mkv:a%3A1"},
	}
	for _, tc := range cases {
		got := MakeKey(tc.namespace, tc.key)
		if got != tc.want {
			t.Fatalf("MakeKey(%q, %+v) = %q, want %q", tc.namespace, tc.key, got, tc.want)
		}
		namespace, key, ok := ParseKey(got)
		if !ok || key != tc.key {
			t.Fatalf("ParseKey(%q) = %q, %+v, %v", got, namespace, key, ok)
		}
	}
}

func TestParseKeyRejectsForeignKeys(t *testing.T) {
	for _, raw := range []string{"", "a:b", "ns:other:id:v%3A0", "ns:ffprobe:%zz:v"} {
		if _, _, ok := ParseKey(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestEntryExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := Entry{StoredAt: now, ExpiresAt: expiry(now, TTLMinute)}
	if entry.Expired(now.Add(59 * time.Second)) {
		t.Fatal("expired too early")
	}
	if !entry.Expired(now.Add(time.Minute)) {
		t.Fatal("expected expiry at the deadline")
	}
	forever := Entry{StoredAt: now, ExpiresAt: expiry(now, TTLIndefinite)}
	if !forever.Indefinite() || forever.Expired(now.Add(100*365*24*time.Hour)) {
		t.Fatal("indefinite entry expired")
	}
}
