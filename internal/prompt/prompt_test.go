package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildImagePromptSubstitutesEverything(t *testing.T) {
	tags := []TagContext{
		{Name: "Songket", Description: "gold supplementary weft"},
		{Name: "Ikat", Description: "resist-dyed warp threads"},
	}
	out := BuildImagePrompt("a spiral indigo motif", tags, "natural")

	require.Contains(t, out, "a spiral indigo motif")
	require.Contains(t, out, "Rendering mood: natural")
	require.Contains(t, out, "Songket: gold supplementary weft")
	require.Contains(t, out, "Ikat: resist-dyed warp threads")
	require.NotContains(t, out, "{{")
}

func TestBuildImagePromptWithoutTags(t *testing.T) {
	out := BuildImagePrompt("waves", nil, "vivid")
	require.NotContains(t, out, "style references")
	require.NotContains(t, out, "{{")
}

func TestBuildImagePromptDeterministic(t *testing.T) {
	tags := []TagContext{{Name: "Ikat", Description: "resist dye"}}
	a := BuildImagePrompt("waves", tags, "vivid")
	b := BuildImagePrompt("waves", tags, "vivid")
	require.Equal(t, a, b)
}

func TestBuildDescriptionAndTagPrompts(t *testing.T) {
	d := BuildDescriptionPrompt("waves")
	require.Contains(t, d, "waves")
	require.NotContains(t, d, "{{")

	tp := BuildTagPrompt("waves", "an indigo panel")
	require.Contains(t, tp, "waves")
	require.Contains(t, tp, "an indigo panel")
	require.NotContains(t, tp, "{{")
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"indigo, spiral, Coastal", []string{"indigo", "spiral", "coastal"}},
		{" a ,, b ,", []string{"a", "b"}},
		{"", nil},
		{"single", []string{"single"}},
	}
	for _, c := range cases {
		got := ParseTags(c.in)
		if strings.Join(got, "|") != strings.Join(c.want, "|") {
			t.Fatalf("ParseTags(%q)=%v; want %v", c.in, got, c.want)
		}
	}
}
