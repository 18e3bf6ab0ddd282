package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"m.ortiz@example.org", "M Ortiz"},
		{"diaz@lumen.example", "Diaz"},
		{"first_last+filings@example.org", "First Last Filings"},
		{"ortiz", "Ortiz"},
		{"...@example.org", "Unnamed Party"},
		{"", "Unnamed Party"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.addr))
		})
	}
}
