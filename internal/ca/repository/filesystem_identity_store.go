// Package repository stores pending user identities on the local filesystem and certificate
// requests in PostgreSQL or MySQL.
package repository

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

const (
	identityFile    = "identity.json"
	sealedKeyFile   = "key.sealed.json"
	csrFile         = "request.csr"
	certificateFile = "certificate.pem"
)

type identityJSON struct {
	Username           string    `json:"username"`
	CommonName         string    `json:"common_name"`
	Country            string    `json:"country,omitempty"`
	State              string    `json:"state,omitempty"`
	Locality           string    `json:"locality,omitempty"`
	Organization       string    `json:"organization,omitempty"`
	OrganizationalUnit string    `json:"organizational_unit,omitempty"`
	Email              string    `json:"email,omitempty"`
	RequesterID        uuid.UUID `json:"requester_id"`
	CreatedAt          time.Time `json:"created_at"`
}

type sealedKeyJSON struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	AuthTag    string `json:"auth_tag"`
}

// FilesystemIdentityStore keeps one directory per identity under root. Directory creation
// is the reservation: os.Mkdir fails for an existing identity, across processes sharing root.
type FilesystemIdentityStore struct {
	root string
}

// NewFilesystemIdentityStore creates a FilesystemIdentityStore rooted at root.
func NewFilesystemIdentityStore(root string) *FilesystemIdentityStore {
	return &FilesystemIdentityStore{root: root}
}

// Reserve atomically creates the identity directory.
func (f *FilesystemIdentityStore) Reserve(_ context.Context, username string) error {
	if err := os.MkdirAll(f.root, 0o700); err != nil {
		return fmt.Errorf("failed to create identity root: %w", err)
	}
	if err := os.Mkdir(f.dir(username), 0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return caDomain.ErrIdentityAlreadyExists
		}
		return fmt.Errorf("failed to reserve identity: %w", err)
	}
	return nil
}

// Save writes the identity metadata, sealed key and CSR into a reserved directory.
func (f *FilesystemIdentityStore) Save(_ context.Context, identity *caDomain.Identity) error {
	if identity.SealedKey == nil {
		return errors.New("identity has no sealed key")
	}

	meta, err := json.Marshal(identityJSON{
		Username:           identity.Username,
		CommonName:         identity.Subject.CommonName,
		Country:            identity.Subject.Country,
		State:              identity.Subject.State,
		Locality:           identity.Subject.Locality,
		Organization:       identity.Subject.Organization,
		OrganizationalUnit: identity.Subject.OrganizationalUnit,
		Email:              identity.Subject.Email,
		RequesterID:        identity.RequesterID,
		CreatedAt:          identity.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	key, err := json.Marshal(sealedKeyJSON{
		Ciphertext: hex.EncodeToString(identity.SealedKey.Ciphertext),
		IV:         identity.SealedKey.IVHex(),
		Salt:       identity.SealedKey.SaltHex(),
		AuthTag:    identity.SealedKey.AuthTagHex(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode sealed key: %w", err)
	}

	dir := f.dir(identity.Username)
	if _, err := os.Stat(dir); err != nil {
		return caDomain.ErrIdentityNotFound
	}

	files := []struct {
		name string
		data []byte
	}{
		{sealedKeyFile, key},
		{csrFile, identity.CSR},
		{identityFile, meta},
	}
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(dir, file.name), file.data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.name, err)
		}
	}
	return nil
}

// Load reads an identity. Missing CSR or certificate files leave those fields nil.
func (f *FilesystemIdentityStore) Load(_ context.Context, username string) (*caDomain.Identity, error) {
	dir := f.dir(username)

	metaBytes, err := os.ReadFile(filepath.Join(dir, identityFile)) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, caDomain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var meta identityJSON
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}

	identity := &caDomain.Identity{
		Username: meta.Username,
		Subject: pkiDomain.SubjectFields{
			CommonName:         meta.CommonName,
			Country:            meta.Country,
			State:              meta.State,
			Locality:           meta.Locality,
			Organization:       meta.Organization,
			OrganizationalUnit: meta.OrganizationalUnit,
			Email:              meta.Email,
		},
		RequesterID: meta.RequesterID,
		CreatedAt:   meta.CreatedAt,
	}

	identity.SealedKey, err = readSealedKey(filepath.Join(dir, sealedKeyFile))
	if err != nil {
		return nil, err
	}
	if identity.CSR, err = readOptional(filepath.Join(dir, csrFile)); err != nil {
		return nil, err
	}
	if identity.Certificate, err = readOptional(filepath.Join(dir, certificateFile)); err != nil {
		return nil, err
	}
	return identity, nil
}

// SaveCertificate stores the signed certificate. A second call fails with
// ErrCertificateAlreadyIssued.
func (f *FilesystemIdentityStore) SaveCertificate(_ context.Context, username string, cert []byte) error {
	path := filepath.Join(f.dir(username), certificateFile)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return caDomain.ErrCertificateAlreadyIssued
		case errors.Is(err, fs.ErrNotExist):
			return caDomain.ErrIdentityNotFound
		}
		return fmt.Errorf("failed to create certificate file: %w", err)
	}

	_, writeErr := file.Write(cert)
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	return nil
}

// Delete removes the identity directory. Deleting a missing identity is not an error.
func (f *FilesystemIdentityStore) Delete(_ context.Context, username string) error {
	if err := os.RemoveAll(f.dir(username)); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

// List returns every complete identity, oldest first. Directories still being written are skipped.
func (f *FilesystemIdentityStore) List(ctx context.Context) ([]*caDomain.Identity, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*caDomain.Identity{}, nil
		}
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	identities := make([]*caDomain.Identity, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		identity, err := f.Load(ctx, entry.Name())
		if err != nil {
			if errors.Is(err, caDomain.ErrIdentityNotFound) {
				continue
			}
			return nil, err
		}
		identities = append(identities, identity)
	}

	sort.Slice(identities, func(i, j int) bool {
		return identities[i].CreatedAt.Before(identities[j].CreatedAt)
	})
	return identities, nil
}

func (f *FilesystemIdentityStore) dir(username string) string {
	return filepath.Join(f.root, username)
}

func readSealedKey(path string) (*cryptoDomain.EncryptedBlob, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, caDomain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to read sealed key: %w", err)
	}

	var sealed sealedKeyJSON
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("failed to decode sealed key: %w", err)
	}

	ciphertext, err := hex.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not hex", cryptoDomain.ErrInvalidBlobEncoding)
	}
	return cryptoDomain.NewEncryptedBlobFromHex(ciphertext, sealed.IV, sealed.Salt, sealed.AuthTag)
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}
