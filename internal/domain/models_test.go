package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal_CanAccess(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		target string
		want   bool
	}{
		{"root prefix grants everything", "/", "/any/path.bin", true},
		{"empty prefix grants everything", "", "/any/path.bin", true},
		{"exact prefix match", "/team-a", "/team-a", true},
		{"path under prefix", "/team-a", "/team-a/docs/f.bin", true},
		{"sibling with shared name prefix", "/team-a", "/team-ab/f.bin", false},
		{"outside prefix", "/team-a", "/team-b/f.bin", false},
		{"dot segments cannot escape", "/team-a", "/team-a/../team-b/f.bin", false},
		{"empty target denied", "/", "", false},
		{"unnormalized target still matches", "/team-a", "team-a//docs/./f.bin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Principal{PathPrefix: tt.prefix}
			assert.Equal(t, tt.want, p.CanAccess(tt.target))
		})
	}
}
