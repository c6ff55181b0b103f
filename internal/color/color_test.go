package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpp(t *testing.T) {
	assert.Equal(t, Black, White.Opp())
	assert.Equal(t, White, Black.Opp())
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "White", White.Title())
	assert.Equal(t, "Black", Black.Title())
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Color{"white": White, "W": White, " b ": Black, "Black": Black} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("red")
	assert.Error(t, err)
	assert.False(t, Color("red").Valid())
}
