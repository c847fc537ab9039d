package main

import (
	"fmt"
	"io"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/spf13/cobra"
)

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	accountID, err := parseAccountID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ent, err := a.plans.Entitlement(ctx, accountID)
	if err != nil {
		return err
	}

	printEntitlement(cmd.OutOrStdout(), ent)
	return nil
}

func printEntitlement(w io.Writer, ent *service.Entitlement) {
	spec := ent.State.Spec()
	fmt.Fprintf(w, "Plan:      %s (%s)\n", spec.Name, ent.State.Label)
	fmt.Fprintf(w, "Status:    %s\n", ent.Validity)

	if ent.State.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:   %s\n", ent.State.ExpiresAt.Format(time.RFC1123))
	}

	if ent.Remaining == domain.UnlimitedDownloads {
		fmt.Fprintln(w, "Downloads: unlimited")
	} else {
		fmt.Fprintf(w, "Downloads: %d of %d used, %d left\n",
			ent.State.DownloadsUsed, ent.State.DownloadsAllowed, ent.Remaining)
	}

	fmt.Fprintf(w, "Download:  %s\n", decisionLine(ent.Download))
	fmt.Fprintf(w, "Email:     %s\n", decisionLine(ent.Email))
}

func decisionLine(d domain.Decision) string {
	if d.Allow {
		return "allowed"
	}
	return fmt.Sprintf("refused (%s) %s", d.Reason, d.Message)
}
