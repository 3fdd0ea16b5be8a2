package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersRequestFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	flags := cmd.Flags()

	file := flags.Lookup("file")
	require.NotNil(t, file)
	require.Equal(t, "f", file.Shorthand)

	language := flags.Lookup("language")
	require.NotNil(t, language)
	require.Equal(t, "l", language.Shorthand)
	require.Equal(t, "english", language.DefValue)

	translate := flags.Lookup("translate")
	require.NotNil(t, translate)
	require.Equal(t, "t", translate.Shorthand)
	require.Equal(t, "false", translate.DefValue)

	audioFlag := flags.Lookup("audio")
	require.NotNil(t, audioFlag)
	require.Equal(t, "a", audioFlag.Shorthand)
	require.Equal(t, "false", audioFlag.DefValue)
}

func TestRootCommandRegistersTuningFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	flags := cmd.Flags()

	require.NotNil(t, flags.Lookup("endpoint"))
	require.Equal(t, "https://api.vaani.cloud/v1/transcribe", flags.Lookup("endpoint").DefValue)
	require.Equal(t, "5m0s", flags.Lookup("timeout").DefValue)
	require.NotNil(t, flags.Lookup("config"))
	require.Equal(t, "false", flags.Lookup("fetch").DefValue)
	require.NotNil(t, flags.Lookup("output-audio"))
	require.Equal(t, "false", flags.Lookup("copy").DefValue)
	require.Equal(t, "false", flags.Lookup("silence-gate").DefValue)
	require.Equal(t, "-65", flags.Lookup("silence-threshold-dbfs").DefValue)
	require.Equal(t, "auto", flags.Lookup("transcoder").DefValue)
	require.NotNil(t, flags.Lookup("verbose"))
	require.NotNil(t, flags.Lookup("json"))
	require.NotNil(t, flags.Lookup("no-progress"))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	require.True(t, names["languages"])
	require.True(t, names["auth"])
	require.True(t, names["convert"])
	require.True(t, names["version"])
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "languages")
	require.Contains(t, out.String(), "auth")
	require.Contains(t, out.String(), "convert")
	require.Contains(t, out.String(), "version")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "languages", args: []string{"languages", "--help"}, contains: "List the target languages"},
		{name: "auth", args: []string{"auth", "--help"}, contains: "Store or inspect the Vaani API key"},
		{name: "convert", args: []string{"convert", "--help"}, contains: "Normalize an audio file"},
		{name: "version", args: []string{"version", "--help"}, contains: "Print the version number"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}
