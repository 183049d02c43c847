package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const pngDataURIPrefix = "data:image/png;base64,"

// PNGDataURI wraps base64-encoded PNG bytes into a data URI
func PNGDataURI(encoded string) string {
	return pngDataURIPrefix + encoded
}

// EncodePNGDataURI base64-encodes raw PNG bytes into a data URI
func EncodePNGDataURI(data []byte) string {
	return PNGDataURI(base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURI returns the media type and raw bytes of a base64 data URI
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing payload")
	}

	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("unsupported data URI encoding")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}

	return mediaType, data, nil
}
