// Package qrx renders otpauth provisioning URIs as QR code images so
// authenticator apps can scan an enrollment in one step.
package qrx

import (
	"encoding/base64"
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when the content string is empty or
	// only whitespace.
	ErrEmptyContent = errors.New("qrx: content cannot be empty")
	// ErrEncode is returned when the underlying QR encoder fails.
	ErrEncode = errors.New("qrx: failed to encode qr code")
)

// DefaultSize is the pixel size used when no size is specified.
const DefaultSize = 256

// PNG renders content as a PNG QR code of the given pixel size.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return png, nil
}

// DataURI renders content as a base64 PNG data URI suitable for direct
// embedding in an <img> tag.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
