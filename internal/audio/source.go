package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fboucher/terminal-tools/internal/platform"
)

// SourceKind classifies the value passed to --file.
type SourceKind int

const (
	SourceLocalFile SourceKind = iota
	SourceRemoteURL
	SourceDataURI
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemoteURL:
		return "remote URL"
	case SourceDataURI:
		return "data URI"
	default:
		return "local file"
	}
}

// ClassifySource decides whether the input is a data URI, a remote URL, or a
// local path. Anything that is neither of the first two is treated as a path.
func ClassifySource(input string) SourceKind {
	trimmed := strings.TrimSpace(input)
	switch {
	case IsDataURI(trimmed):
		return SourceDataURI
	case IsRemoteURL(trimmed):
		return SourceRemoteURL
	default:
		return SourceLocalFile
	}
}

func IsRemoteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalSource is a local audio file prepared for submission.
type LocalSource struct {
	// DataURI is the base64-encoded payload sent to the API.
	DataURI string
	// WAVPath points at the normalized WAV on disk, either the input itself
	// or the converted copy.
	WAVPath string
	// Converted reports whether a transcoder produced WAVPath.
	Converted bool

	cleanupPath string
	logger      *zap.Logger
}

// Cleanup removes the converted temporary file, if any. Safe to call on a
// source that required no conversion.
func (s *LocalSource) Cleanup() {
	if s == nil || s.cleanupPath == "" {
		return
	}

	if err := os.Remove(s.cleanupPath); err != nil && !os.IsNotExist(err) {
		if s.logger != nil {
			s.logger.Warn("failed to remove converted audio", zap.String("path", s.cleanupPath), zap.Error(err))
		}
	}
	s.cleanupPath = ""
}

// ResolveOptions controls local file preparation.
type ResolveOptions struct {
	// Transcoder names the preferred conversion tool, "auto" or empty tries
	// them in priority order.
	Transcoder string
	Logger     *zap.Logger
}

// ResolveLocalFile validates a local audio path and prepares it for
// submission. Files already in WAV form are encoded as-is; everything else is
// first normalized to mono 16 kHz PCM WAV by an external transcoder.
func ResolveLocalFile(ctx context.Context, path string, opts ResolveOptions) (*LocalSource, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	expanded, err := platform.ExpandHome(path)
	if err != nil {
		return nil, fmt.Errorf("resolve audio path: %w", err)
	}
	expanded = filepath.Clean(expanded)

	info, err := os.Stat(expanded)
	if err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("audio path %s is a directory", expanded)
	}

	source := &LocalSource{WAVPath: expanded, logger: logger}

	if !strings.EqualFold(filepath.Ext(expanded), ".wav") {
		converted := TempWAVPath(expanded)
		tool, err := ConvertWithFallback(ctx, opts.Transcoder, expanded, converted, logger)
		if err != nil {
			return nil, err
		}

		logger.Debug("normalized audio for upload",
			zap.String("input", expanded),
			zap.String("output", converted),
			zap.String("tool", tool))

		source.WAVPath = converted
		source.Converted = true
		source.cleanupPath = converted
	}

	dataURI, err := EncodeFileDataURI(source.WAVPath)
	if err != nil {
		source.Cleanup()
		return nil, err
	}
	source.DataURI = dataURI

	return source, nil
}
