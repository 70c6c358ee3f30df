package namegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderAndLimit(t *testing.T) {
	names := Generate([]string{"Solar"}, "", 3)
	assert.Equal(t, []string{"Neosolarly", "Neosolarify", "Neosolario"}, names)
}

func TestGenerateAppliesStyleInfix(t *testing.T) {
	names := Generate([]string{"green"}, "modern", 1)
	require.Len(t, names, 1)
	assert.Equal(t, "Neoxgreenly", names[0])

	names = Generate([]string{"green"}, "professional", 1)
	assert.Equal(t, []string{"Neoprogreenly"}, names)
}

func TestGenerateDeduplicatesAndFallsBack(t *testing.T) {
	names := Generate([]string{"go", "GO!"}, "", 1000)

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	// 9 prefixes x 9 suffixes for the single distinct seed, plus 9 fallbacks.
	assert.Len(t, names, 90)
	assert.Equal(t, "Goforge", names[len(names)-1])
}

func TestGenerateDefaultsAndEmptySeeds(t *testing.T) {
	assert.Len(t, Generate([]string{"nova"}, "", 0), DefaultLimit)
	assert.Empty(t, Generate([]string{"!!", " "}, "", 5))
	assert.Empty(t, Generate(nil, "modern", 5))
}

func TestTitleCaseDigits(t *testing.T) {
	assert.Equal(t, "Neo2Xly", titleCase("neo2xly"))
	assert.Equal(t, "Éclairio", titleCase("éclairio"))
}

func TestParseStyle(t *testing.T) {
	style, err := ParseStyle(" Playful ")
	require.NoError(t, err)
	assert.Equal(t, "playful", style)

	style, err = ParseStyle("")
	require.NoError(t, err)
	assert.Empty(t, style)

	_, err = ParseStyle("gothic")
	require.Error(t, err)
}
