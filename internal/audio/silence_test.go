package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeasureFileLevelsSilentClip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(path, pcm16WAV(make([]int16, 16000)), 0o644))

	report, err := MeasureFileLevels(path)
	require.NoError(t, err)
	require.True(t, math.IsInf(report.RMSdBFS, -1))
	require.True(t, math.IsInf(report.PeakdBFS, -1))
	require.EqualValues(t, 16000, report.Samples)
	require.True(t, report.Silent(-65))
}

func TestMeasureLevelsSpeechLikeSignal(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(0.25 * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}

	report, err := MeasureLevels(bytes.NewReader(pcm16WAV(samples)))
	require.NoError(t, err)
	require.Greater(t, report.RMSdBFS, -20.0)
	require.Greater(t, report.PeakdBFS, -20.0)
	require.False(t, report.Silent(-65))
}

func TestSilentAppliesPeakGate(t *testing.T) {
	t.Parallel()

	// Quiet floor with a single transient: RMS stays under -65 dBFS but the
	// peak sits well above the -59 dBFS gate.
	samples := make([]int16, 16000)
	samples[8000] = 1638

	report, err := MeasureLevels(bytes.NewReader(pcm16WAV(samples)))
	require.NoError(t, err)
	require.Less(t, report.RMSdBFS, -65.0)
	require.Greater(t, report.PeakdBFS, -59.0)
	require.False(t, report.Silent(-65))
}

func TestSilentPassesQuietHiss(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 16000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 3
		} else {
			samples[i] = -3
		}
	}

	report, err := MeasureLevels(bytes.NewReader(pcm16WAV(samples)))
	require.NoError(t, err)
	require.Less(t, report.RMSdBFS, -65.0)
	require.True(t, report.Silent(-65))
}

func TestMeasureLevelsSkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	samples := []int16{1000, -1000, 1000, -1000}
	wav := pcm16WAV(samples)

	// Splice a LIST chunk between fmt and data.
	list := make([]byte, 8+6)
	copy(list, "LIST")
	binary.LittleEndian.PutUint32(list[4:], 6)
	dataStart := bytes.Index(wav, []byte("data"))
	require.Positive(t, dataStart)
	spliced := append(append(append([]byte{}, wav[:dataStart]...), list...), wav[dataStart:]...)

	report, err := MeasureLevels(bytes.NewReader(spliced))
	require.NoError(t, err)
	require.EqualValues(t, len(samples), report.Samples)
}

func TestMeasureLevelsRejectsNonWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-wav.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := MeasureFileLevels(path)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestMeasureLevelsRejectsFloatEncoding(t *testing.T) {
	t.Parallel()

	wav := pcm16WAV([]int16{0, 0})
	fmtStart := bytes.Index(wav, []byte("fmt "))
	require.Positive(t, fmtStart)
	// Overwrite the audio format tag with IEEE float.
	binary.LittleEndian.PutUint16(wav[fmtStart+8:], 3)

	_, err := MeasureLevels(bytes.NewReader(wav))
	require.ErrorIs(t, err, ErrUnsupportedWAV)
}

func TestMeasureLevelsRequiresDataChunk(t *testing.T) {
	t.Parallel()

	wav := pcm16WAV([]int16{0, 0})
	dataStart := bytes.Index(wav, []byte("data"))
	require.Positive(t, dataStart)

	_, err := MeasureLevels(bytes.NewReader(wav[:dataStart]))
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func pcm16WAV(samples []int16) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+24+8+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint32(16000*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}
