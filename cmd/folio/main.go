// Command folio renders and delivers documents from the terminal, using the
// same entitlement rules and delivery chain as the server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:           "folio",
		Short:         "Render, deliver and email documents for an account",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	planCmd = &cobra.Command{
		Use:   "plan [account-id]",
		Short: "Show the resolved plan and what it allows",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan, // Defined in cmd_plan.go
	}

	downloadCmd = &cobra.Command{
		Use:   "download [account-id] [document.json]",
		Short: "Render a document and deliver it to the output directory",
		Args:  cobra.ExactArgs(2),
		RunE:  runDownload, // Defined in cmd_download.go
	}

	emailCmd = &cobra.Command{
		Use:   "email [account-id] [document.json]",
		Short: "Render a document and email it as a PDF attachment",
		Args:  cobra.ExactArgs(2),
		RunE:  runEmail, // Defined in cmd_email.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	downloadCmd.Flags().StringVar(&outputDir, "out", ".", "Directory the artifact is saved to")
	downloadCmd.Flags().StringVar(&templateName, "template", "classic", "Template (classic, modern)")
	downloadCmd.Flags().StringVar(&docTitle, "title", "", "Title used in the default filename")
	downloadCmd.Flags().StringVar(&filename, "filename", "", "Exact filename to save as")
	downloadCmd.Flags().IntVar(&maxRetries, "retries", 0, "Direct save attempts before falling back")
	downloadCmd.Flags().BoolVar(&noOpen, "no-open", false, "Skip the open-in-viewer fallback")

	emailCmd.Flags().StringVar(&templateName, "template", "classic", "Template (classic, modern)")
	emailCmd.Flags().StringVar(&docTitle, "title", "", "Title used in the attachment filename")

	rootCmd.AddCommand(planCmd, downloadCmd, emailCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
