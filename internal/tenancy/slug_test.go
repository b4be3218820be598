package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme", "acme"},
		{"  São Paulo Ltda. ", "sao-paulo-ltda"},
		{"Ação & Reação", "acao-reacao"},
		{"ÉÈÊ--123", "eee-123"},
		{"***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("acme-2"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("Acme"))
	assert.False(t, ValidSlug("acme--2"))
	assert.False(t, ValidSlug("-acme"))
}
