package profile

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
)

var defaultTextureDomains = []string{".minecraft.net", ".mojang.com"}

// DefaultTextureDomains returns the host suffixes texture URLs may point at
// unless a Verifier is given its own.
func DefaultTextureDomains() []string {
	return append([]string(nil), defaultTextureDomains...)
}

// Verifier checks the textures property of a profile against the session
// service public key.
type Verifier struct {
	key     *rsa.PublicKey
	domains []string
	logger  *slog.Logger
}

// NewVerifier returns a Verifier trusting key, or DefaultSessionKey when key
// is nil. With no domains, DefaultTextureDomains is used.
func NewVerifier(key *rsa.PublicKey, domains ...string) *Verifier {
	if key == nil {
		// On a parse failure VerifySignature reports ErrNoPublicKey.
		key, _ = DefaultSessionKey()
	}
	if len(domains) == 0 {
		domains = defaultTextureDomains
	}
	return &Verifier{
		key:     key,
		domains: append([]string(nil), domains...),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used for verification failures.
func (v *Verifier) WithLogger(logger *slog.Logger) *Verifier {
	v.logger = logger
	return v
}

// Textures decodes the textures of p. With requireSecure the payload
// signature and every texture domain are checked first. The result is
// cached on p; an insecure cache entry is re-verified by a secure call.
// A profile without a textures property has no textures.
func (v *Verifier) Textures(p *GameProfile, requireSecure bool) (map[TextureType]Texture, error) {
	if p.textures != nil && (p.texturesVerified || !requireSecure) {
		return maps.Clone(p.textures), nil
	}

	prop, ok := p.Property(TexturesProperty)
	if !ok {
		p.textures = map[TextureType]Texture{}
		p.texturesVerified = requireSecure
		return map[TextureType]Texture{}, nil
	}

	if requireSecure {
		if !prop.HasSignature() {
			return nil, ErrSignatureMissing
		}
		if err := v.VerifySignature(prop); err != nil {
			v.logger.Debug("texture signature rejected", "profile", p.IDString(), "error", err)
			return nil, err
		}
	}

	payload, err := DecodeTexturesPayload(prop.Value)
	if err != nil {
		return nil, err
	}
	textures := payload.Textures
	if textures == nil {
		textures = map[TextureType]Texture{}
	}

	if requireSecure {
		for _, tex := range textures {
			if err := v.checkDomain(tex.URL); err != nil {
				return nil, err
			}
		}
	}

	p.textures = textures
	p.texturesVerified = requireSecure
	return maps.Clone(textures), nil
}

// VerifySignature checks the SHA1-with-RSA signature of a property value.
func (v *Verifier) VerifySignature(prop Property) error {
	if v.key == nil {
		return ErrNoPublicKey
	}
	sig, err := base64.StdEncoding.DecodeString(prop.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	digest := sha1.Sum([]byte(prop.Value))
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA1, digest[:], sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

// DecodeTexturesPayload decodes a base64 encoded textures property value.
func DecodeTexturesPayload(value string) (*TexturesPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
	}
	var payload TexturesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadDecode, err)
	}
	return &payload, nil
}

func (v *Verifier) checkDomain(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNonWhitelistedDomain, rawURL)
	}
	host := u.Hostname()
	for _, d := range v.domains {
		if strings.HasSuffix(host, d) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNonWhitelistedDomain, host)
}
