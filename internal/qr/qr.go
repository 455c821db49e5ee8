// Package qr renders join links as PNG data URLs.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

type Renderer struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewRenderer() *Renderer {
	return &Renderer{size: 256, level: qrcode.Medium}
}

// DataURL encodes content as a QR PNG wrapped in a data: URL.
func (r *Renderer) DataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, r.level, r.size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
