package cache

import (
	"strings"
	"testing"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		IdentityID: "4b1d3c2e-0000-4000-8000-000000000001",
		Email:      "alice@example.com",
		Username:   "alice",
		Role:       "user",
		Verified:   true,
		AvatarURL:  "https://www.gravatar.com/avatar/abc?d=identicon",
		CreatedAt:  1700000000,
		TokenID:    "jti-1",
		ExpiresAt:  1700003600,
	}
}

func TestEncodeDecodePreservesSnapshot(t *testing.T) {
	want := sampleSnapshot()
	data, err := Encode(want)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if *got != *want {
		t.Fatalf("snapshot changed:\n got %+v\nwant %+v", got, want)
	}
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	s := sampleSnapshot()
	s.AvatarURL = strings.Repeat("x", 256)
	if _, err := Encode(s); err == nil {
		t.Fatal("expected error for oversized field")
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	data, err := Encode(sampleSnapshot())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	cases := map[string][]byte{
		"empty":     {},
		"version":   append([]byte{9}, data[1:]...),
		"truncated": data[:len(data)-3],
		"trailing":  append(append([]byte{}, data...), 0),
	}
	for name, in := range cases {
		if _, err := Decode(in); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

// FuzzSnapshotDecode feeds arbitrary bytes to the decoder; it must never panic.
func FuzzSnapshotDecode(f *testing.F) {
	encoded, err := Encode(sampleSnapshot())
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{1, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("re-encode of decoded snapshot failed: %v", err)
		}
	})
}
