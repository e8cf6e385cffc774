// Command mythforge is a thin CLI over the creation core: an interactive
// chat session, a file validator, and a version stamp. All logic lives
// in internal/.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "mythforge",
	Short: "Conversational RPG universe and character authoring",
	Long: `mythforge turns free-form messages into structured RPG universes and
characters: intent classification, field extraction, validation,
incremental editing with undo/redo, and phase-driven creation flows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(chatCmd, validateCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mythforge %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
