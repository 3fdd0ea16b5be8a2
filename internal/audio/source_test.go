package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifySource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  SourceKind
	}{
		{name: "data uri", input: "data:audio/wav;base64,AAAA", want: SourceDataURI},
		{name: "http url", input: "http://example.com/a.mp3", want: SourceRemoteURL},
		{name: "https url", input: "https://example.com/a.mp3", want: SourceRemoteURL},
		{name: "uppercase scheme", input: "HTTPS://example.com/a.mp3", want: SourceRemoteURL},
		{name: "padded url", input: "  https://example.com/a.mp3  ", want: SourceRemoteURL},
		{name: "absolute path", input: "/home/user/a.wav", want: SourceLocalFile},
		{name: "home path", input: "~/a.wav", want: SourceLocalFile},
		{name: "relative path", input: "recordings/a.wav", want: SourceLocalFile},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ClassifySource(tt.input))
		})
	}
}

func TestResolveLocalFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ResolveLocalFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), ResolveOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio file not found")
}

func TestResolveLocalFileRejectsDirectory(t *testing.T) {
	t.Parallel()

	_, err := ResolveLocalFile(context.Background(), t.TempDir(), ResolveOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "is a directory")
}

func TestResolveLocalFileWAVPassthrough(t *testing.T) {
	t.Parallel()

	content := pcm16WAV([]int16{0, 100, -100, 0})
	path := filepath.Join(t.TempDir(), "clip.WAV")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	source, err := ResolveLocalFile(context.Background(), path, ResolveOptions{})
	require.NoError(t, err)
	t.Cleanup(source.Cleanup)

	require.False(t, source.Converted)
	require.Equal(t, path, source.WAVPath)
	require.True(t, strings.HasPrefix(source.DataURI, "data:audio/wav;base64,"))

	_, decoded, err := DecodeDataURI(source.DataURI)
	require.NoError(t, err)
	require.Equal(t, content, decoded)

	source.Cleanup()
	_, err = os.Stat(path)
	require.NoError(t, err, "cleanup must not remove the caller's file")
}

func TestResolveLocalFileConvertsNonWAV(t *testing.T) {
	setupTranscoderStub(t, "ffmpeg")

	input := filepath.Join(t.TempDir(), "memo.m4a")
	require.NoError(t, os.WriteFile(input, []byte("m4a"), 0o644))

	source, err := ResolveLocalFile(context.Background(), input, ResolveOptions{})
	require.NoError(t, err)

	require.True(t, source.Converted)
	require.NotEqual(t, input, source.WAVPath)
	require.True(t, strings.HasSuffix(source.WAVPath, ".wav"))
	require.True(t, strings.HasPrefix(source.DataURI, "data:audio/wav;base64,"))

	_, decoded, err := DecodeDataURI(source.DataURI)
	require.NoError(t, err)
	require.Equal(t, "stub-wav", string(decoded))

	converted := source.WAVPath
	source.Cleanup()
	_, err = os.Stat(converted)
	require.True(t, os.IsNotExist(err))
}

func TestResolveLocalFileHonorsPreferredTranscoder(t *testing.T) {
	setupTranscoderStub(t, "sox")

	input := filepath.Join(t.TempDir(), "memo.ogg")
	require.NoError(t, os.WriteFile(input, []byte("ogg"), 0o644))

	source, err := ResolveLocalFile(context.Background(), input, ResolveOptions{Transcoder: "sox"})
	require.NoError(t, err)
	t.Cleanup(source.Cleanup)

	require.True(t, source.Converted)

	_, decoded, err := DecodeDataURI(source.DataURI)
	require.NoError(t, err)
	require.Equal(t, "stub-wav", string(decoded))
}

func TestResolveLocalFileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	content := pcm16WAV([]int16{1, 2, 3})
	require.NoError(t, os.WriteFile(filepath.Join(home, "clip.wav"), content, 0o644))

	source, err := ResolveLocalFile(context.Background(), "~/clip.wav", ResolveOptions{})
	require.NoError(t, err)
	t.Cleanup(source.Cleanup)

	require.Equal(t, filepath.Join(home, "clip.wav"), source.WAVPath)
}
