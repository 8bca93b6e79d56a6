package main

import (
	"context"

	"github.com/desertthunder/scribe/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	r.logger.Info("creating config file from template", "path", path)
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set backend.base_url, auth.domain and auth.client_id (or %s, %s, %s)\n",
		shared.EnvBackendBase, shared.EnvAuthDomain, shared.EnvAuthClientID)
	r.writePlain("2. Run 'scribe setup database'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.database(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// SetupCheck validates the loaded configuration.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	warnings, err := r.config.Validate()
	for _, w := range warnings {
		r.logger.Warn(w)
		r.writePlain("! %s\n", w)
	}
	if err != nil {
		return err
	}

	r.writePlain("✓ Configuration is valid\n")
	r.writePlain("Backend: %s\n", r.config.Backend.BaseURL)
	r.writePlain("Identity provider: %s\n", r.config.Auth.Domain)
	if r.configPath != "" {
		r.writePlain("Loaded from: %s\n", r.configPath)
	}
	return nil
}
