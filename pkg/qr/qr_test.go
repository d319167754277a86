package qr

import (
	"encoding/base64"
	"testing"
)

func TestJoinURL(t *testing.T) {
	tests := []struct {
		frontend string
		code     string
		want     string
	}{
		{"http://localhost:5173", "AB12CD", "http://localhost:5173/r/AB12CD"},
		{"http://localhost:5173/", "AB12CD", "http://localhost:5173/r/AB12CD"},
		{"https://hushhour.example.com", "ZZ99XX", "https://hushhour.example.com/r/ZZ99XX"},
	}
	for _, tt := range tests {
		if got := JoinURL(tt.frontend, tt.code); got != tt.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.frontend, tt.code, got, tt.want)
		}
	}
}

func TestEncodeBase64(t *testing.T) {
	out, err := EncodeBase64("http://localhost:5173/r/AB12CD")
	if err != nil {
		t.Fatalf("EncodeBase64: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(out)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	// PNG magic bytes.
	if len(raw) < 8 || raw[0] != 0x89 || string(raw[1:4]) != "PNG" {
		t.Error("decoded payload is not a PNG")
	}
}
