// Package qr renders the room join URL as a QR code for sharing on screen.
package qr

import (
	"encoding/base64"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 256

// JoinURL builds the attendee-facing URL for a room code.
func JoinURL(frontendURL, code string) string {
	return fmt.Sprintf("%s/r/%s", strings.TrimRight(frontendURL, "/"), code)
}

// EncodeBase64 returns a base64-encoded PNG of a QR code for data. The image
// is generated per request and returned inline, never stored.
func EncodeBase64(data string) (string, error) {
	png, err := qrcode.Encode(data, qrcode.Low, pngSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
