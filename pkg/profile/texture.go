package profile

import "strings"

type TextureType string

const (
	TextureSkin   TextureType = "SKIN"
	TextureCape   TextureType = "CAPE"
	TextureElytra TextureType = "ELYTRA"
)

type TextureModel string

const (
	ModelNormal TextureModel = "NORMAL"
	ModelSlim   TextureModel = "SLIM"
)

type Texture struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MetadataValue returns "" for a missing key.
func (t Texture) MetadataValue(key string) string {
	return t.Metadata[key]
}

func (t Texture) Model() TextureModel {
	if t.MetadataValue("model") == "slim" {
		return ModelSlim
	}
	return ModelNormal
}

// Hash is the last path segment of the URL without its extension. One
// trailing slash is ignored. A dot before the last slash does not count as
// an extension.
func (t Texture) Hash() string {
	u := strings.TrimSuffix(t.URL, "/")
	slash := strings.LastIndex(u, "/")
	dot := strings.LastIndex(u, ".")
	if dot <= slash {
		dot = len(u)
	}
	return u[slash+1 : dot]
}

// TexturesPayload is the decoded value of the textures property.
type TexturesPayload struct {
	Timestamp         int64                   `json:"timestamp"`
	ProfileID         string                  `json:"profileId"`
	ProfileName       string                  `json:"profileName"`
	IsPublic          bool                    `json:"isPublic"`
	SignatureRequired bool                    `json:"signatureRequired,omitempty"`
	Textures          map[TextureType]Texture `json:"textures"`
}
