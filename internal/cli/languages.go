package cli

import (
	"fmt"

	"github.com/fboucher/terminal-tools/internal/speech"
	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the target languages the service accepts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range speech.LanguageNames() {
				lang, _ := speech.LookupLanguage(name)
				marker := ""
				if name == speech.DefaultLanguage {
					marker = " (default)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s%s\n", name, lang.Code, marker)
			}
			return nil
		},
	}
}
