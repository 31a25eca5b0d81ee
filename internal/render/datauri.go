package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

const MimePNG = "image/png"

// ErrBadDataURI is returned for payloads that are not base64 image data.
var ErrBadDataURI = errors.New("malformed image payload")

// EncodeDataURI wraps data as data:<mime>;base64,<payload>.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI accepts either a full data URI or a bare base64 payload and
// returns the declared media type (image/png when absent) and raw bytes.
func ParseDataURI(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	mime := MimePNG
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return "", nil, fmt.Errorf("%w: missing comma", ErrBadDataURI)
		}
		mt, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return "", nil, fmt.Errorf("%w: not base64 encoded", ErrBadDataURI)
		}
		if mt != "" {
			mime = mt
		}
		s = payload
	}
	if s == "" {
		return "", nil, fmt.Errorf("%w: empty payload", ErrBadDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
	}
	return mime, data, nil
}

// DecodeImage parses a data URI (or bare base64) into a raster image.
func DecodeImage(s string) (image.Image, []byte, string, error) {
	mime, data, err := ParseDataURI(s)
	if err != nil {
		return nil, nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	if mime == MimePNG && format != "png" {
		mime = "image/" + format
	}
	return img, data, mime, nil
}
