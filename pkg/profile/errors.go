package profile

import (
	"errors"
	"fmt"

	"github.com/heyztb/go-mcauth/pkg/autherr"
)

var (
	// ErrTextureIntegrity is the parent of every texture verification
	// failure.
	ErrTextureIntegrity = errors.New("texture integrity check failed")

	ErrSignatureMissing     = fmt.Errorf("%w: signature is missing from textures payload", ErrTextureIntegrity)
	ErrSignatureInvalid     = fmt.Errorf("%w: textures payload has been tampered with (signature invalid)", ErrTextureIntegrity)
	ErrPayloadDecode        = fmt.Errorf("%w: could not decode texture payload", ErrTextureIntegrity)
	ErrNonWhitelistedDomain = fmt.Errorf("%w: textures payload contains blocked domain", ErrTextureIntegrity)

	// ErrNoPublicKey is a configuration error, not an integrity failure.
	ErrNoPublicKey = fmt.Errorf("%w: no public key configured for texture verification", autherr.ErrInvalidState)

	ErrInvalidProfile  = errors.New("name and id cannot both be blank")
	ErrProfileNotFound = errors.New("server did not find the requested profile")
)
