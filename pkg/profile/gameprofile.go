// Package profile models Minecraft game profiles, verifies the signed
// texture metadata attached to them and resolves names to profiles.
package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TexturesProperty is the property carrying the signed texture payload.
const TexturesProperty = "textures"

// Property is a name/value pair attached to a profile. It is signed when
// Signature is non-empty.
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

func (p Property) HasSignature() bool {
	return p.Signature != ""
}

// GameProfile identifies a player by id, name or both. A GameProfile is not
// safe for concurrent use: Verifier.Textures caches its result on it.
type GameProfile struct {
	id         uuid.UUID
	name       string
	properties []Property

	textures         map[TextureType]Texture
	texturesVerified bool
}

// NewGameProfile returns ErrInvalidProfile when id is uuid.Nil and name is
// blank.
func NewGameProfile(id uuid.UUID, name string) (*GameProfile, error) {
	if id == uuid.Nil && strings.TrimSpace(name) == "" {
		return nil, ErrInvalidProfile
	}
	return &GameProfile{id: id, name: name}, nil
}

// ParseGameProfile accepts a dashed or undashed id. An empty id means absent.
func ParseGameProfile(id, name string) (*GameProfile, error) {
	var parsed uuid.UUID
	if id != "" {
		var err error
		parsed, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing profile id %q: %w", id, err)
		}
	}
	return NewGameProfile(parsed, name)
}

func (p *GameProfile) ID() uuid.UUID { return p.id }

func (p *GameProfile) Name() string { return p.name }

// IDString returns the undashed id used on the wire, or "" when absent.
func (p *GameProfile) IDString() string {
	if p.id == uuid.Nil {
		return ""
	}
	return undashed(p.id)
}

// IsComplete reports whether both id and name are present.
func (p *GameProfile) IsComplete() bool {
	return p.id != uuid.Nil && strings.TrimSpace(p.name) != ""
}

// Equal compares id and name. Properties are ignored.
func (p *GameProfile) Equal(o *GameProfile) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.id == o.id && p.name == o.name
}

// Properties returns a copy of the property list.
func (p *GameProfile) Properties() []Property {
	out := make([]Property, len(p.properties))
	copy(out, p.properties)
	return out
}

// SetProperties replaces the property list and drops any cached textures.
func (p *GameProfile) SetProperties(props []Property) {
	p.properties = make([]Property, len(props))
	copy(p.properties, props)
	p.textures = nil
	p.texturesVerified = false
}

// Property returns the first property called name.
func (p *GameProfile) Property(name string) (Property, bool) {
	for _, prop := range p.properties {
		if prop.Name == name {
			return prop, true
		}
	}
	return Property{}, false
}

func (p *GameProfile) String() string {
	return fmt.Sprintf("GameProfile{id=%s, name=%s, properties=%d}", p.IDString(), p.name, len(p.properties))
}

type gameProfileJSON struct {
	ID         string     `json:"id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

func (p *GameProfile) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameProfileJSON{
		ID:         p.IDString(),
		Name:       p.name,
		Properties: p.properties,
	})
}

func (p *GameProfile) UnmarshalJSON(data []byte) error {
	var raw gameProfileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseGameProfile(raw.ID, raw.Name)
	if err != nil {
		return err
	}
	*p = *parsed
	p.SetProperties(raw.Properties)
	return nil
}

func undashed(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
