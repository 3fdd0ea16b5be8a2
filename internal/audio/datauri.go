package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fallbackMIMEType = "application/octet-stream"

var mimeTypes = map[string]string{
	".aac":  "audio/aac",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
	".amr":  "audio/amr",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".wma":  "audio/x-ms-wma",
}

// MIMETypeFor maps a file path to its audio MIME type by extension,
// defaulting to a generic binary type for anything unknown.
func MIMETypeFor(path string) string {
	if mime, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return fallbackMIMEType
}

// EncodeDataURI wraps raw bytes into a data: URI with standard base64
// encoding.
func EncodeDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = fallbackMIMEType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// EncodeFileDataURI reads a file and encodes it into a data: URI, deriving
// the MIME type from the file extension.
func EncodeFileDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	return EncodeDataURI(MIMETypeFor(path), data), nil
}

// DecodeDataURI splits a base64 data: URI back into its MIME type and raw
// bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, errors.New("not a data URI")
	}

	rest := strings.TrimPrefix(uri, "data:")
	marker := strings.Index(rest, ";base64,")
	if marker < 0 {
		return "", nil, errors.New("data URI is not base64-encoded")
	}

	mimeType := rest[:marker]
	data, err := base64.StdEncoding.DecodeString(rest[marker+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI payload: %w", err)
	}

	if mimeType == "" {
		mimeType = fallbackMIMEType
	}

	return mimeType, data, nil
}

func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}
