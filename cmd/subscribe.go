package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/ui"
	"github.com/urfave/cli/v3"
)

// Plans prints the plan comparison, with the checkout banner when --success is given.
func (r *Runner) Plans(ctx context.Context, cmd *cli.Command) error {
	_, access := r.currentAccess(ctx)
	r.writePlain("%s\n", ui.RenderSubscriptions(access, ui.SubscriptionMessage(cmd.String("success"))))

	switch {
	case !access.Authenticated:
		r.writePlain("Run 'scribe auth login' to sign in.\n")
	case !access.Pro:
		r.writePlain("Run 'scribe subscribe' to go Pro.\n")
	}
	return nil
}

// Subscribe creates a checkout session for the signed-in account and opens it in the browser.
func (r *Runner) Subscribe(ctx context.Context, cmd *cli.Command) error {
	_, access := r.currentAccess(ctx)
	if !access.Authenticated {
		return fmt.Errorf("%w: run 'scribe auth login' first", shared.ErrNotAuthenticated)
	}
	if access.Pro {
		return r.writePlain("Pro plan already active. Use 'scribe portal' to manage it.\n")
	}

	backend, err := r.transcriptionBackend()
	if err != nil {
		return err
	}

	url, err := backend.CreateCheckoutSession(ctx, access.SubjectID)
	if err != nil {
		r.logger.Error("checkout failed", "error", err)
		r.writePlain("%s\n", ui.SubscriptionFailed)
		return err
	}

	if err := r.openURL(url); err != nil {
		r.logger.Warn("could not open browser automatically", "error", err)
	}
	r.writePlain("Complete checkout in your browser:\n%s\n", url)
	return r.writePlain("Then run 'scribe plans' to confirm your plan.\n")
}

// Portal opens the billing portal.
func (r *Runner) Portal(ctx context.Context, cmd *cli.Command) error {
	portal := r.config.Billing.PortalURL
	if portal == "" {
		r.logger.Error("customer portal not defined")
		return fmt.Errorf("%w: set billing.portal_url (%s)", shared.ErrPortalNotDefined, shared.EnvPortalURL)
	}

	if err := r.openURL(portal); err != nil {
		r.logger.Warn("could not open browser automatically", "error", err)
	}
	return r.writePlain("Manage your subscription at:\n%s\n", portal)
}

// About prints the about page.
func (r *Runner) About(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("%s\n", ui.AboutText)
}

// Terms prints the terms of service.
func (r *Runner) Terms(ctx context.Context, cmd *cli.Command) error {
	return r.writePlain("%s\n", ui.TermsText)
}
