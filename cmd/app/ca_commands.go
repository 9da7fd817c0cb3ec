package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/esign/cmd/app/commands"
	"github.com/allisson/esign/internal/app"
	caUseCase "github.com/allisson/esign/internal/ca/usecase"
	"github.com/allisson/esign/internal/config"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Value:   "text",
	Usage:   "Output format: 'text' or 'json'",
}

var usernameFlag = &cli.StringFlag{
	Name:     "username",
	Aliases:  []string{"u"},
	Required: true,
	Usage:    "Identity username",
}

// withCA resolves the CA use case and the CA master secret and releases them after fn.
func withCA(
	ctx context.Context,
	fn func(container *app.Container, useCase caUseCase.CAUseCase, master *cryptoDomain.MasterSecret) error,
) error {
	container := app.NewContainer(config.Load())
	defer func() { _ = container.Shutdown(ctx) }()

	useCase, err := container.CAUseCase()
	if err != nil {
		return err
	}
	secrets, err := container.MasterSecrets()
	if err != nil {
		return err
	}
	return fn(container, useCase, secrets.CA)
}

// withCAReadOnly resolves the CA use case without loading master secrets.
func withCAReadOnly(ctx context.Context, fn func(useCase caUseCase.CAUseCase) error) error {
	container := app.NewContainer(config.Load())
	defer func() { _ = container.Shutdown(ctx) }()

	useCase, err := container.CAUseCase()
	if err != nil {
		return err
	}
	return fn(useCase)
}

func getCACommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "bootstrap-ca",
			Usage: "Create the certificate authority root key and certificate",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCA(ctx, func(c *app.Container, uc caUseCase.CAUseCase, m *cryptoDomain.MasterSecret) error {
					return commands.RunBootstrapCA(ctx, uc, m, c.Logger(), commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
		{
			Name:  "issue-credential",
			Usage: "Create a user key pair and certificate signing request",
			Flags: []cli.Flag{
				usernameFlag,
				&cli.StringFlag{Name: "common-name", Aliases: []string{"cn"}, Required: true, Usage: "Subject common name"},
				&cli.StringFlag{Name: "country", Usage: "Subject country (two letters)"},
				&cli.StringFlag{Name: "state", Usage: "Subject state or province"},
				&cli.StringFlag{Name: "locality", Usage: "Subject locality"},
				&cli.StringFlag{Name: "organization", Usage: "Subject organization"},
				&cli.StringFlag{Name: "organizational-unit", Usage: "Subject organizational unit"},
				&cli.StringFlag{Name: "email", Usage: "Subject email address"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				subject, err := pkiDomain.NewSubjectFields(pkiDomain.SubjectFields{
					CommonName:         cmd.String("common-name"),
					Country:            cmd.String("country"),
					State:              cmd.String("state"),
					Locality:           cmd.String("locality"),
					Organization:       cmd.String("organization"),
					OrganizationalUnit: cmd.String("organizational-unit"),
					Email:              cmd.String("email"),
				})
				if err != nil {
					return fmt.Errorf("invalid subject: %w", err)
				}
				return withCA(ctx, func(c *app.Container, uc caUseCase.CAUseCase, m *cryptoDomain.MasterSecret) error {
					return commands.RunIssueCredential(
						ctx, uc, m, c.Logger(), commands.DefaultIO().Writer,
						cmd.String("username"), subject, cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "sign-csr",
			Usage: "Sign a pending certificate signing request with the CA key",
			Flags: []cli.Flag{usernameFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCA(ctx, func(c *app.Container, uc caUseCase.CAUseCase, m *cryptoDomain.MasterSecret) error {
					return commands.RunSignCSR(ctx, uc, m, c.Logger(), commands.DefaultIO().Writer, cmd.String("username"))
				})
			},
		},
		{
			Name:  "export-credential",
			Usage: "Export an issued identity as a PKCS#12 bundle and remove it",
			Flags: []cli.Flag{
				usernameFlag,
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Bundle password (prompted when omitted)",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Output file (defaults to <username>.p12)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCA(ctx, func(c *app.Container, uc caUseCase.CAUseCase, m *cryptoDomain.MasterSecret) error {
					return commands.RunExportCredential(
						ctx, uc, m, c.Logger(), commands.DefaultIO(),
						cmd.String("username"), cmd.String("password"), cmd.String("output"),
					)
				})
			},
		},
		{
			Name:  "verify-cert",
			Usage: "Check that a PEM certificate was issued by this certificate authority",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "cert", Aliases: []string{"c"}, Required: true, Usage: "PEM certificate file"},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCAReadOnly(ctx, func(uc caUseCase.CAUseCase) error {
					return commands.RunVerifyCert(ctx, uc, commands.DefaultIO().Writer, cmd.String("cert"), cmd.String("format"))
				})
			},
		},
		{
			Name:  "ca-info",
			Usage: "Describe the certificate authority certificate",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCAReadOnly(ctx, func(uc caUseCase.CAUseCase) error {
					return commands.RunCAInfo(ctx, uc, commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
		{
			Name:  "list-identities",
			Usage: "List identities awaiting export",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withCAReadOnly(ctx, func(uc caUseCase.CAUseCase) error {
					return commands.RunListIdentities(ctx, uc, commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
	}
}
