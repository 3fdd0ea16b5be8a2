package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fboucher/terminal-tools/internal/audio"
	"github.com/fboucher/terminal-tools/internal/platform"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConvertCmd(app *appState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <audio-file>",
		Short: "Normalize an audio file to mono 16 kHz PCM WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := platform.ExpandHome(args[0])
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}
			input = filepath.Clean(input)
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("audio file not found: %w", err)
			}

			dest := strings.TrimSpace(output)
			if dest == "" {
				dest = strings.TrimSuffix(input, filepath.Ext(input)) + ".wav"
			}
			dest = filepath.Clean(dest)
			if dest == input {
				return fmt.Errorf("output %s would overwrite the input; pass --output", dest)
			}

			stopSpinner := startSpinner(app.progressEnabled(), "Converting")
			tool, err := audio.ConvertWithFallback(cmd.Context(), app.transcoder, input, dest, app.log())
			stopSpinner()
			if err != nil {
				return err
			}

			app.log().Info("audio normalized", zap.String("tool", tool), zap.String("path", dest))
			fmt.Fprintf(cmd.OutOrStdout(), "Converted to %s\n", dest)
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindTranscoderFlag(cmd, app)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (default: input name with a .wav extension)")

	return cmd
}
