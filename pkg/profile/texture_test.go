package profile_test

import (
	"testing"

	"github.com/heyztb/go-mcauth/pkg/profile"
	"github.com/stretchr/testify/assert"
)

func TestTextureHash(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://textures.minecraft.net/texture/abc123", "abc123"},
		{"http://textures.minecraft.net/texture/abc123.png", "abc123"},
		{"http://textures.minecraft.net/texture/abc123/", "abc123"},
		{"http://textures.minecraft.net/texture/abc123.png/", "abc123"},
		{"http://textures.minecraft.net/texture/a.b.c", "a.b"},
		{"abc123", "abc123"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, profile.Texture{URL: tt.url}.Hash())
		})
	}
}

func TestTextureModel(t *testing.T) {
	assert.Equal(t, profile.ModelSlim, profile.Texture{Metadata: map[string]string{"model": "slim"}}.Model())
	assert.Equal(t, profile.ModelNormal, profile.Texture{Metadata: map[string]string{"model": "classic"}}.Model())
	assert.Equal(t, profile.ModelNormal, profile.Texture{}.Model())
	assert.Equal(t, "", profile.Texture{}.MetadataValue("model"))
}
