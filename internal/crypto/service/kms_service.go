package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"

	// Register KMS provider drivers usable through KMS_KEY_URI.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

type kmsService struct{}

// NewKMSService returns a KMS service that opens gocloud.dev secrets keepers.
func NewKMSService() cryptoDomain.KMSService {
	return &kmsService{}
}

// OpenKeeper opens the keeper addressed by keyURI (awskms://, gcpkms://, azurekeyvault://,
// hashivault://, base64key://).
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
