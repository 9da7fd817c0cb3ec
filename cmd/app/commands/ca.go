package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	"github.com/allisson/esign/internal/ca/http/dto"
	caUseCase "github.com/allisson/esign/internal/ca/usecase"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

// RunBootstrapCA creates the CA root key and self-signed certificate.
func RunBootstrapCA(
	ctx context.Context,
	useCase caUseCase.CAUseCase,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	ca, err := useCase.BootstrapCA(ctx, master)
	if err != nil {
		return fmt.Errorf("failed to bootstrap certificate authority: %w", err)
	}
	logger.Info("certificate authority created", slog.String("ca_id", ca.ID.String()))

	if format == "json" {
		return writeJSON(writer, dto.MapCAToResponse(ca))
	}
	_, _ = fmt.Fprintf(writer, "Certificate authority created: %s\n\n%s", ca.ID, ca.Certificate)
	return nil
}

// RunIssueCredential creates a user key pair and CSR for username.
func RunIssueCredential(
	ctx context.Context,
	useCase caUseCase.CAUseCase,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
	writer io.Writer,
	username string,
	subject pkiDomain.SubjectFields,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	identity, err := useCase.IssueUserCredential(ctx, &caDomain.IssueInput{
		Username: username,
		Subject:  subject,
	}, master)
	if err != nil {
		return fmt.Errorf("failed to issue credential: %w", err)
	}
	logger.Info("user credential issued", slog.String("username", identity.Username))

	if format == "json" {
		return writeJSON(writer, dto.MapIdentityToResponse(identity))
	}
	_, _ = fmt.Fprintf(writer, "Identity %s created (%s)\nSubject: %s\n",
		identity.Username, identity.Status(), identity.Subject.Subject())
	return nil
}

// RunSignCSR signs the pending CSR of username with the CA key and prints the certificate.
func RunSignCSR(
	ctx context.Context,
	useCase caUseCase.CAUseCase,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
	writer io.Writer,
	username string,
) error {
	cert, err := useCase.SignUserCSR(ctx, username, master)
	if err != nil {
		return fmt.Errorf("failed to sign certificate request: %w", err)
	}
	logger.Info("certificate signed", slog.String("username", username))

	_, _ = writer.Write(cert)
	return nil
}

// RunExportCredential writes the PKCS#12 bundle of username to outputPath. The export
// password is read from io when empty. The identity is removed once exported.
func RunExportCredential(
	ctx context.Context,
	useCase caUseCase.CAUseCase,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
	streams IOTuple,
	username, password, outputPath string,
) error {
	if outputPath == "" {
		outputPath = username + ".p12"
	}
	if password == "" {
		var err error
		if password, err = promptLine(streams, "Export password"); err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("export password must not be empty")
	}

	bundle, err := useCase.ExportCredentialBundle(ctx, username, password, master)
	if err != nil {
		return fmt.Errorf("failed to export credential: %w", err)
	}
	defer cryptoDomain.Zero(bundle)

	if err := os.WriteFile(outputPath, bundle, 0o600); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	logger.Info("credential exported", slog.String("username", username))

	_, _ = fmt.Fprintf(streams.Writer, "Credential bundle written to %s\n", outputPath)
	return nil
}

// RunVerifyCert checks that the PEM certificate at certPath was issued by the CA.
func RunVerifyCert(
	ctx context.Context,
	useCase caUseCase.CAUseCase,
	writer io.Writer,
	certPath, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	cert, err := os.ReadFile(certPath) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}

	err = useCase.VerifyAgainstCA(ctx, cert)
	if err != nil && !errors.Is(err, caDomain.ErrNotTrusted) {
		return fmt.Errorf("failed to verify certificate: %w", err)
	}
	trusted := err == nil

	if format == "json" {
		if writeErr := writeJSON(writer, dto.VerifyResponse{Trusted: trusted}); writeErr != nil {
			return writeErr
		}
	} else if trusted {
		_, _ = fmt.Fprintln(writer, "Certificate is trusted")
	}
	return err
}

// RunCAInfo describes the CA certificate.
func RunCAInfo(ctx context.Context, useCase caUseCase.CAUseCase, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	info, err := useCase.GetCAInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to read certificate authority: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapCAInfoToResponse(info))
	}
	_, _ = fmt.Fprintf(writer, "Subject:    %s\nIssuer:     %s\nSerial:     %s\nNot before: %s\nNot after:  %s\n",
		info.Subject, info.Issuer, info.Serial,
		info.NotBefore.Format("2006-01-02 15:04:05"), info.NotAfter.Format("2006-01-02 15:04:05"))
	return nil
}

// RunListIdentities prints the identities awaiting export.
func RunListIdentities(ctx context.Context, useCase caUseCase.CAUseCase, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	identities, err := useCase.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapIdentitiesToListResponse(identities))
	}
	for _, identity := range identities {
		_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\n", identity.Username, identity.Status(), identity.Subject.Subject())
	}
	return nil
}
