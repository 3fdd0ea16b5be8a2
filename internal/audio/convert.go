package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrNoTranscoderAvailable = errors.New("no audio transcoder available; install ffmpeg or sox")

const (
	// TargetSampleRate is the sampling rate the hosted API expects.
	TargetSampleRate = 16000
	TargetChannels   = 1
)

// Transcoder converts an audio file into mono 16 kHz signed 16-bit PCM WAV.
type Transcoder interface {
	Name() string
	Available() bool
	Convert(ctx context.Context, inputPath, outputPath string, logger *zap.Logger) error
}

func DefaultTranscoders() []Transcoder {
	return []Transcoder{newFFMPEGTranscoder(), newSoxTranscoder()}
}

func SelectTranscoder(transcoders []Transcoder, preferred string) (Transcoder, error) {
	if len(transcoders) == 0 {
		return nil, errors.New("no transcoders configured")
	}

	if preferred != "" && preferred != "auto" {
		for _, transcoder := range transcoders {
			if transcoder.Name() == preferred {
				if !transcoder.Available() {
					return nil, fmt.Errorf("requested transcoder %q is not available", preferred)
				}
				return transcoder, nil
			}
		}
		return nil, fmt.Errorf("unknown transcoder %q", preferred)
	}

	for _, transcoder := range transcoders {
		if transcoder.Available() {
			return transcoder, nil
		}
	}

	return nil, ErrNoTranscoderAvailable
}

// ConvertWithFallback runs the preferred transcoder first and falls back to
// the remaining ones if it fails. It returns the name of the transcoder that
// produced the output.
func ConvertWithFallback(ctx context.Context, preferred, inputPath, outputPath string, logger *zap.Logger) (string, error) {
	return convertWithFallback(ctx, DefaultTranscoders(), preferred, inputPath, outputPath, logger)
}

func convertWithFallback(ctx context.Context, transcoders []Transcoder, preferred, inputPath, outputPath string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ordered, err := orderTranscoders(transcoders, preferred)
	if err != nil {
		return "", err
	}

	var errs []error
	for _, transcoder := range ordered {
		if !transcoder.Available() {
			errs = append(errs, fmt.Errorf("%s: transcoder is not available", transcoder.Name()))
			continue
		}

		err := transcoder.Convert(ctx, inputPath, outputPath, logger)
		if err == nil {
			return transcoder.Name(), nil
		}

		if cleanupErr := removePartialOutput(outputPath); cleanupErr != nil {
			errs = append(errs, fmt.Errorf("%s: cleanup partial output %q: %w", transcoder.Name(), outputPath, cleanupErr))
		}

		err = fmt.Errorf("%s: %w", transcoder.Name(), err)
		errs = append(errs, err)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}

	if len(errs) == 0 {
		return "", ErrNoTranscoderAvailable
	}

	return "", fmt.Errorf("convert audio with available transcoders: %w", errors.Join(errs...))
}

func orderTranscoders(transcoders []Transcoder, preferred string) ([]Transcoder, error) {
	if len(transcoders) == 0 {
		return nil, errors.New("no transcoders configured")
	}

	if preferred == "" || preferred == "auto" {
		return transcoders, nil
	}

	preferredIndex := -1
	for i, transcoder := range transcoders {
		if transcoder.Name() == preferred {
			preferredIndex = i
			break
		}
	}
	if preferredIndex == -1 {
		return nil, fmt.Errorf("unknown transcoder %q", preferred)
	}

	ordered := make([]Transcoder, 0, len(transcoders))
	ordered = append(ordered, transcoders[preferredIndex])
	for i, transcoder := range transcoders {
		if i == preferredIndex {
			continue
		}
		ordered = append(ordered, transcoder)
	}

	return ordered, nil
}

func removePartialOutput(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

type ffmpegTranscoder struct{}

func newFFMPEGTranscoder() Transcoder {
	return &ffmpegTranscoder{}
}

func (t *ffmpegTranscoder) Name() string {
	return "ffmpeg"
}

func (t *ffmpegTranscoder) Available() bool {
	return commandAvailable("ffmpeg")
}

func (t *ffmpegTranscoder) Convert(ctx context.Context, inputPath, outputPath string, logger *zap.Logger) error {
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-ac", strconv.Itoa(TargetChannels),
		"-ar", strconv.Itoa(TargetSampleRate),
		"-c:a", "pcm_s16le",
		outputPath,
	}
	return runTranscode(ctx, "ffmpeg", args, logger)
}

type soxTranscoder struct{}

func newSoxTranscoder() Transcoder {
	return &soxTranscoder{}
}

func (t *soxTranscoder) Name() string {
	return "sox"
}

func (t *soxTranscoder) Available() bool {
	return commandAvailable("sox")
}

func (t *soxTranscoder) Convert(ctx context.Context, inputPath, outputPath string, logger *zap.Logger) error {
	args := []string{
		"--no-show-progress",
		inputPath,
		"-r", strconv.Itoa(TargetSampleRate),
		"-c", strconv.Itoa(TargetChannels),
		"-b", "16",
		"-e", "signed-integer",
		outputPath,
	}
	return runTranscode(ctx, "sox", args, logger)
}

func runTranscode(ctx context.Context, name string, args []string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	logger.Debug("running transcoder", zap.String("tool", name), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return fmt.Errorf("%s convert failed: %w (%s)", name, err, errText)
		}
		return fmt.Errorf("%s convert failed: %w", name, err)
	}

	return nil
}

// TempWAVPath returns a unique path for a converted file carrying the input's
// base name, so transcoder error messages stay recognizable.
func TempWAVPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if base == "" {
		base = "audio"
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("vaani-%s-%d.wav", base, time.Now().UnixNano()))
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
