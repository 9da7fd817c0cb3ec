package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/esign/cmd/app/commands"
	"github.com/allisson/esign/internal/app"
	"github.com/allisson/esign/internal/config"
	cryptoService "github.com/allisson/esign/internal/crypto/service"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server with the outbox relay and background jobs",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "worker",
			Usage: "Run the outbox relay and background jobs without the HTTP server",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "once",
					Usage: "Run every job and one relay batch, then exit",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunWorker(ctx, version, cmd.Bool("once"))
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "create-master-secret",
			Usage: "Generate the CA and document master secrets",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Usage: "Encrypt the secrets with this KMS key (e.g. base64key://..., awskms:///alias/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateMasterSecret(
					ctx,
					cryptoService.NewKMSService(),
					cmd.String("kms-key-uri"),
					commands.DefaultIO().Writer,
				)
			},
		},
	}
}
