package main

import (
	"fmt"
	"io"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/observability"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/DukeRupert/folio/internal/storage"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	outputDir    string
	templateName string
	docTitle     string
	filename     string
	maxRetries   int
	noOpen       bool
)

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	accountID, err := parseAccountID(args[0])
	if err != nil {
		return err
	}
	doc, err := loadDocument(args[1])
	if err != nil {
		return err
	}
	tmpl, err := report.ParseTemplate(templateName)
	if err != nil {
		return fmt.Errorf("unknown template %q", templateName)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: outputDir}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	cfg := delivery.Config{
		Saver:  delivery.NewStorageSaver(store, 0),
		Links:  delivery.NewLinkBuilder(store).WithInlineLimit(int(a.cfg.LinkInlineThreshold)),
		Sink:   observability.MultiSink{observability.NewLogSink(a.logger), observability.NewStoreSink(a.repo)},
		Logger: a.logger,
	}
	if !noOpen {
		cfg.Opener = delivery.NewBrowserOpener(outputDir)
	}

	downloads := service.NewDownloadService(a.plans, a.usage, a.renderer, delivery.NewOrchestrator(cfg), a.logger)

	opts := delivery.DefaultOptions()
	opts.MaxRetries = a.cfg.DeliveryMaxRetries
	if maxRetries > 0 {
		opts.MaxRetries = maxRetries
	}
	opts.RetryDelay = a.cfg.DeliveryRetryDelay
	opts.Timeout = a.cfg.DeliveryTimeout
	opts.UserAgent = delivery.UserAgentCLI
	opts.OnProgress = func(p delivery.Progress) { printProgress(out, p) }

	outcome, err := downloads.Download(ctx, service.DownloadRequest{
		AccountID: accountID,
		Document:  doc,
		Template:  tmpl,
		Title:     docTitle,
		Filename:  filename,
		Options:   opts,
	})
	if outcome != nil {
		printNotice(out, outcome.Result.Notice)
		if outcome.UsageNotice != "" {
			fmt.Fprintln(out, outcome.UsageNotice)
		}
	}
	return err
}

func printProgress(w io.Writer, p delivery.Progress) {
	line := "  " + string(p.Stage)
	if p.Method != "" {
		line += " via " + string(p.Method)
	}
	if p.MaxRetries > 1 {
		line += fmt.Sprintf(" (attempt %d/%d)", p.Attempt, p.MaxRetries)
	}
	fmt.Fprintln(w, line)
}

// printNotice shows the outcome and, for link deliveries, puts the link on
// the clipboard when one is available.
func printNotice(w io.Writer, n delivery.Notice) {
	fmt.Fprintln(w, n.Message)
	if n.Link == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", n.Link)
	if n.Copyable {
		if err := clipboard.WriteAll(n.Link); err == nil {
			fmt.Fprintln(w, "  (link copied to clipboard)")
		}
	}
}
