package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostPost(t *testing.T) {
	t.Run("parses post with dotted price", func(t *testing.T) {
		post, ok := ParseHostPost("Botines de cuero #678 - 150.000")
		require.True(t, ok)
		assert.Equal(t, "Botines de cuero", post.Description)
		assert.Equal(t, "678", post.Reference)
		assert.Equal(t, int64(150000), post.Price)
	})

	t.Run("strips currency sign and commas", func(t *testing.T) {
		post, ok := ParseHostPost("Tenis urbanos #55 - $89,000")
		require.True(t, ok)
		assert.Equal(t, int64(89000), post.Price)
	})

	t.Run("capitalizes the first letter of the description", func(t *testing.T) {
		post, ok := ParseHostPost("botines de cuero #678 - 150000")
		require.True(t, ok)
		assert.Equal(t, "Botines de cuero", post.Description)
	})

	t.Run("trims description and reference", func(t *testing.T) {
		post, ok := ParseHostPost("Bolso grande   #A-12 - 45000")
		require.True(t, ok)
		assert.Equal(t, "Bolso grande", post.Description)
		assert.Equal(t, "A-12", post.Reference)
	})

	t.Run("rejects text without the pattern", func(t *testing.T) {
		_, ok := ParseHostPost("hola, ¿cómo van las ventas?")
		assert.False(t, ok)
	})

	t.Run("rejects reference with spaces", func(t *testing.T) {
		_, ok := ParseHostPost("Botines #ref con espacio - 150000")
		assert.False(t, ok)
	})

	t.Run("rejects price that is only punctuation", func(t *testing.T) {
		_, ok := ParseHostPost("Botines #678 - $..,")
		assert.False(t, ok)
	})
}

func TestParseVariantLine(t *testing.T) {
	valid := []string{"37", "38", "39", "40", "41"}

	t.Run("accepts sizes with and without quantities", func(t *testing.T) {
		accepted, rejected := ParseVariantLine("38 39:2 41", valid)
		require.Empty(t, rejected)
		assert.Equal(t, []VariantToken{{"38", 1}, {"39", 2}, {"41", 1}}, accepted)
	})

	t.Run("uppercases tokens before matching", func(t *testing.T) {
		accepted, rejected := ParseVariantLine("s m:3", []string{"S", "M", "L"})
		require.Empty(t, rejected)
		assert.Equal(t, []VariantToken{{"S", 1}, {"M", 3}}, accepted)
	})

	t.Run("collects unknown sizes as rejected", func(t *testing.T) {
		accepted, rejected := ParseVariantLine("38 99", valid)
		assert.Equal(t, []VariantToken{{"38", 1}}, accepted)
		assert.Equal(t, []string{"99"}, rejected)
	})

	t.Run("rejects zero and negative quantities", func(t *testing.T) {
		_, rejected := ParseVariantLine("38:0 39:-2", valid)
		assert.Equal(t, []string{"38:0", "39:-2"}, rejected)
	})

	t.Run("rejects non-numeric quantities", func(t *testing.T) {
		_, rejected := ParseVariantLine("38:dos", valid)
		assert.Equal(t, []string{"38:DOS"}, rejected)
	})

	t.Run("returns nothing for blank input", func(t *testing.T) {
		accepted, rejected := ParseVariantLine("   ", valid)
		assert.Empty(t, accepted)
		assert.Empty(t, rejected)
	})
}

func TestLiterals(t *testing.T) {
	t.Run("cancel is the exact mark", func(t *testing.T) {
		assert.True(t, IsCancel("✖️"))
		assert.True(t, IsCancel("  ✖️ "))
		assert.False(t, IsCancel("✖️ cancelar"))
		assert.False(t, IsCancel("x"))
	})

	t.Run("confirmation accepts every thumbs-up tone", func(t *testing.T) {
		for _, body := range []string{"👍", "👍🏻", "👍🏼", "👍🏽", "👍🏾", "👍🏿"} {
			assert.True(t, IsConfirmation(body), body)
		}
		assert.False(t, IsConfirmation("👍 listo"))
		assert.False(t, IsConfirmation("ok"))
		assert.False(t, IsConfirmation(""))
	})

	t.Run("no-stock phrase is case-insensitive", func(t *testing.T) {
		assert.True(t, IsNoStock("referencia libre"))
		assert.True(t, IsNoStock("Referencia Libre"))
		assert.True(t, IsNoStock("  REFERENCIA LIBRE "))
		assert.False(t, IsNoStock("referencia"))
	})
}
