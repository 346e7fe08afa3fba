package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	s := NewService()

	html, err := s.RenderHTML("## Demosaic\n\nInterpolates the **Bayer** mosaic.")
	require.NoError(t, err)
	assert.Contains(t, html, `<h2 id="demosaic">Demosaic</h2>`)
	assert.Contains(t, html, "<strong>Bayer</strong>")

	html, err = s.RenderHTML("| stage | domain |\n|---|---|\n| BLC | raw |")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")

	html, err = s.RenderHTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestPlainText(t *testing.T) {
	s := NewService()
	assert.Equal(t, "Gamma applies a power law.", s.PlainText("# Gamma\n\napplies a *power* law.", 0))
	assert.Equal(t, "AWB uses gains", s.PlainText("AWB uses `gains`", 0))
	assert.Equal(t, "Black...", s.PlainText("Black level correction", 5))
	assert.Equal(t, "", s.PlainText("", 10))
}
