package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fboucher/terminal-tools/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func newAuthCmd(app *appState) *cobra.Command {
	var (
		keyFlag string
		show    bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store or inspect the Vaani API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show {
				key, err := config.LoadAPIKey(app.log())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.MaskKey(key))
				if path, err := config.APIKeyPath(); err == nil {
					if _, err := os.Stat(path); err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "Key file: %s\n", path)
					}
				}
				return nil
			}

			key := strings.TrimSpace(keyFlag)
			if key == "" {
				entered, err := promptForKey(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				key = entered
			}

			path, err := config.SaveAPIKey(key)
			if err != nil {
				return err
			}

			app.log().Info("api key stored", zap.String("path", path))
			fmt.Fprintf(cmd.OutOrStdout(), "API key saved to %s\n", path)
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	cmd.Flags().StringVar(&keyFlag, "key", "", "API key value; omit to be prompted")
	cmd.Flags().BoolVar(&show, "show", false, "Print the stored key, masked")

	return cmd
}

// promptForKey reads the key without echoing it. Requires an interactive
// terminal; scripted callers pass --key instead.
func promptForKey(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal to prompt on; pass --key or set VAANI_API_KEY")
	}

	fmt.Fprint(out, "Vaani API key: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}

	return strings.TrimSpace(string(raw)), nil
}
