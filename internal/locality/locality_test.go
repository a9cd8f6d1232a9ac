package locality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"state and zip tail", "12 Elm St, Austin, TX 78701", "TX"},
		{"state only tail", "12 Elm St, Austin, TX", "TX"},
		{"single comma", "401 Main St, Springfield", "Springfield"},
		{"no comma", "12 Elm St Austin TX", ""},
		{"empty", "", ""},
		{"trailing comma", "12 Elm St, Austin,", "Austin"},
		{"only commas", ",,", ""},
		{"whitespace segments", "12 Elm St ,  Boston ,  MA  02101 ", "MA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromAddress(tt.addr))
		})
	}
}
