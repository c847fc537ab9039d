package main

import (
	"fmt"

	"github.com/DukeRupert/folio/internal/email"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/spf13/cobra"
)

func runEmail(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	if !a.cfg.EmailEnabled() {
		return fmt.Errorf("email is not configured, set SMTP_HOST")
	}

	dispatcher, err := email.NewSMTPDispatcher(email.SMTPConfig{
		Host:     a.cfg.SMTPHost,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SMTPUsername,
		Password: a.cfg.SMTPPassword,
		From:     a.cfg.SMTPFrom,
		FromName: a.cfg.SMTPFromName,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("email initialization failed: %w", err)
	}

	emails := service.NewEmailService(a.accounts, a.plans, a.renderer, dispatcher, a.logger)
	sentTo, err := emails.Send(ctx, service.EmailRequest{
		AccountID: accountID,
		Document:  doc,
		Template:  tmpl,
		Title:     docTitle,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", sentTo)
	return nil
}
