package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/scribe/internal/entitlement"
	"github.com/desertthunder/scribe/internal/session"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser sign-in flow and reports the resulting account.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	provider, err := r.sessionProvider()
	if err != nil {
		return err
	}

	r.logger.Info("starting sign in")
	r.writePlain("Opening the browser to sign in...\n")
	if err := provider.Login(ctx); err != nil {
		return err
	}

	s, access := r.currentAccess(ctx)
	if !access.Authenticated {
		return fmt.Errorf("sign in completed but no session is available")
	}
	return r.writePlain("✓ Signed in as %s (%s)\n", s.Identity.DisplayName, access.Plan())
}

// AuthLogout clears the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	provider, err := r.sessionProvider()
	if err != nil {
		return err
	}
	if err := provider.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

type statusReport struct {
	Authenticated bool     `json:"authenticated"`
	SubjectID     string   `json:"subject_id,omitempty"`
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Plan          string   `json:"plan,omitempty"`
}

func newStatusReport(s session.Session, access entitlement.Access) statusReport {
	if !access.Authenticated || s.Identity == nil {
		return statusReport{}
	}
	return statusReport{
		Authenticated: true,
		SubjectID:     access.SubjectID,
		Name:          s.Identity.DisplayName,
		Email:         s.Identity.Email,
		Roles:         s.Identity.Roles,
		Plan:          access.Plan(),
	}
}

// AuthStatus shows the current session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s, access := r.currentAccess(ctx)
	report := newStatusReport(s, access)

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	if !report.Authenticated {
		return r.writePlain("✗ Not signed in\nRun 'scribe auth login' to sign in.\n")
	}

	r.writePlain("✓ Signed in as %s\n", report.Name)
	if report.Email != "" {
		r.writePlain("Email: %s\n", report.Email)
	}
	r.writePlain("Plan: %s\n", report.Plan)
	if len(report.Roles) > 0 {
		r.writePlain("Roles: %s\n", strings.Join(report.Roles, ", "))
	}
	return nil
}
