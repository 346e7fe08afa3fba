package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/store"
)

type doc struct {
	title, description, body string
}

func (d doc) SearchText() (string, string, string) {
	return d.title, d.description, d.body
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		doc   doc
		want  float64
	}{
		{"full title", "demosaic", doc{title: "Demosaic Algorithm"}, 1.0},
		{"token title", "demosaic edge", doc{title: "Edge Enhancement"}, 0.5},
		{"full description", "demosaic", doc{title: "CFA", description: "demosaic reconstructs color"}, 0.8},
		{"token description", "bayer pattern", doc{description: "the Bayer layout"}, 0.3},
		{"full body", "gamma", doc{body: "apply a gamma curve"}, 0.6},
		{"token body", "gamma lut", doc{body: "a 3D LUT"}, 0.2},
		{"every field", "noise", doc{"Noise", "noise model", "shot noise"}, 2.4},
		{"case insensitive", "AWB", doc{title: "awb gains"}, 1.0},
		{"no match", "demosaic", doc{"Gamma", "tone curve", "lookup"}, 0},
		{"empty fields", "demosaic", doc{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(NewQuery(tt.query), tt.doc), 1e-9)
		})
	}
}

func TestScoreEmptyQuery(t *testing.T) {
	assert.Zero(t, Score(NewQuery("   "), doc{title: "anything"}))
	assert.True(t, NewQuery(" \t\n").Empty())
}

func TestRankOrdersByRelevance(t *testing.T) {
	a := doc{title: "Demosaic Algorithm"}
	b := doc{title: "Color Filter Array", description: "demosaic reconstructs missing samples"}
	c := doc{title: "Gamma", description: "tone curve"}

	ranked := Rank(NewQuery("demosaic"), []doc{c, b, a}, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, a, ranked[0].Record)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.Equal(t, b, ranked[1].Record)
	assert.InDelta(t, 0.8, ranked[1].Score, 1e-9)
}

func TestRankIsStable(t *testing.T) {
	records := make([]doc, 0, 6)
	for i := 0; i < 6; i++ {
		records = append(records, doc{title: fmt.Sprintf("Denoise %d", i)})
	}
	ranked := Rank(NewQuery("denoise"), records, 0)
	require.Len(t, ranked, 6)
	for i, r := range ranked {
		assert.Equal(t, records[i], r.Record)
	}
}

func TestRankTruncatesAfterSorting(t *testing.T) {
	// Twenty matches where the strongest ones sit at the end of storage order.
	records := make([]doc, 0, 20)
	for i := 0; i < 15; i++ {
		records = append(records, doc{title: fmt.Sprintf("Stage %d", i), body: "uses lens shading tables"})
	}
	for i := 0; i < 5; i++ {
		records = append(records, doc{title: fmt.Sprintf("Lens Shading %d", i)})
	}

	ranked := Rank(NewQuery("lens shading"), records, 5)
	require.Len(t, ranked, 5)
	for i, r := range ranked {
		assert.Equal(t, fmt.Sprintf("Lens Shading %d", i), r.Record.title)
		assert.InDelta(t, 1.0, r.Score, 1e-9)
	}
}

func TestScoreFlowModuleBody(t *testing.T) {
	module := &store.FlowModule{
		Title:        "Noise Reduction",
		Description:  "Spatial filtering",
		Introduction: "Runs after demosaic.",
		Principle:    "Bilateral weights preserve edges.",
	}
	assert.InDelta(t, 0.6, Score(NewQuery("bilateral"), module), 1e-9)
	assert.InDelta(t, 0.6, Score(NewQuery("after demosaic"), module), 1e-9)
	assert.Zero(t, Score(NewQuery("wavelet"), module))
}
