package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav encoding, integer PCM only")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// peakGateHeadroom is how far the peak may exceed the RMS threshold before a
// clip counts as audible.
const peakGateHeadroom = 6.0

const levelBlockSize = 32 * 1024

// LevelReport holds the measured loudness of a WAV file.
type LevelReport struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// Silent reports whether the measured levels stay below thresholdDBFS. An
// empty or all-zero clip is always silent.
func (r LevelReport) Silent(thresholdDBFS float64) bool {
	if r.Samples == 0 {
		return true
	}
	return r.RMSdBFS <= thresholdDBFS && r.PeakdBFS <= thresholdDBFS+peakGateHeadroom
}

// MeasureFileLevels computes RMS and peak levels for an integer PCM WAV file.
func MeasureFileLevels(path string) (LevelReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return LevelReport{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return MeasureLevels(f)
}

// MeasureLevels streams a RIFF/WAVE container and measures the first data
// chunk. The fmt chunk must precede the data chunk.
func MeasureLevels(r io.Reader) (LevelReport, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return LevelReport{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return LevelReport{}, ErrInvalidWAV
	}

	var (
		bitsPerSample uint16
		haveFormat    bool
		chunkHeader   [8]byte
	)

	for {
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return LevelReport{}, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
			}
			return LevelReport{}, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))
		padded := chunkSize
		if chunkSize%2 != 0 {
			padded++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return LevelReport{}, ErrInvalidWAV
			}

			buf := make([]byte, padded)
			if _, err := io.ReadFull(r, buf); err != nil {
				return LevelReport{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}

			audioFormat := binary.LittleEndian.Uint16(buf[0:2])
			bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			if audioFormat != 1 {
				return LevelReport{}, ErrUnsupportedWAV
			}
			switch bitsPerSample {
			case 8, 16, 24, 32:
			default:
				return LevelReport{}, ErrUnsupportedWAV
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return LevelReport{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			return measureData(io.LimitReader(r, chunkSize), bitsPerSample)
		default:
			if _, err := io.CopyN(io.Discard, r, padded); err != nil {
				return LevelReport{}, fmt.Errorf("skip wav chunk %s: %w", chunkID, err)
			}
		}
	}
}

func measureData(r io.Reader, bitsPerSample uint16) (LevelReport, error) {
	bytesPerSample := int(bitsPerSample) / 8

	var (
		peak       float64
		sumSquares float64
		samples    int64
	)

	buf := make([]byte, levelBlockSize)
	carry := make([]byte, 0, 4)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			block := buf[:n]
			if len(carry) > 0 {
				block = append(carry, block...)
			}

			whole := len(block) / bytesPerSample * bytesPerSample
			for i := 0; i < whole; i += bytesPerSample {
				value := sampleValue(block[i:i+bytesPerSample], bitsPerSample)
				if abs := math.Abs(value); abs > peak {
					peak = abs
				}
				sumSquares += value * value
				samples++
			}

			carry = append(carry[:0], block[whole:]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return LevelReport{}, fmt.Errorf("read wav data: %w", err)
		}
	}

	if samples == 0 {
		return LevelReport{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	return LevelReport{
		RMSdBFS:  amplitudeToDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

func sampleValue(sample []byte, bitsPerSample uint16) float64 {
	switch bitsPerSample {
	case 8:
		// 8-bit WAV samples are unsigned, centered on 128.
		return (float64(sample[0]) - 128.0) / 128.0
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(sample))) / 32768.0
	case 24:
		v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608.0
	default:
		return float64(int32(binary.LittleEndian.Uint32(sample))) / 2147483648.0
	}
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
