package document_test

import (
	"encoding/json"
	"testing"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantErr   bool
		notObject bool
	}{
		{name: "object", input: `{"home": {"hero": {"title": "x"}}}`},
		{name: "empty object", input: `{}`},
		{name: "syntax error", input: `{"home": `, wantErr: true},
		{name: "array", input: `[1, 2]`, wantErr: true, notObject: true},
		{name: "null", input: `null`, wantErr: true, notObject: true},
		{name: "blank", input: "  \n", wantErr: true, notObject: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := document.Parse([]byte(tt.input))
			if !tt.wantErr {
				require.NoError(t, err)
				require.NotNil(t, d)
				return
			}
			require.Error(t, err)
			if tt.notObject {
				require.ErrorIs(t, err, document.ErrNotObject)
			}
		})
	}
}

func TestDocument_ExtraSectionsSurviveRoundTrip(t *testing.T) {
	t.Parallel()

	in := `{"home":{"hero":{"title":"Hi"}},"pages":{"about":{"blocks":[1,2,3]}}}`
	d, err := document.Parse([]byte(in))
	require.NoError(t, err)

	raw, ok := d.Section("pages")
	require.True(t, ok)
	require.JSONEq(t, `{"about":{"blocks":[1,2,3]}}`, string(raw))

	out, err := d.Bytes()
	require.NoError(t, err)
	require.JSONEq(t, in, string(out))
	require.Equal(t, byte('\n'), out[len(out)-1], "on-disk encoding ends with a newline")
}

func TestDocument_MissingTreatsNullAsAbsent(t *testing.T) {
	t.Parallel()

	d, err := document.Parse([]byte(`{"home": null, "contact": {}}`))
	require.NoError(t, err)

	missing := d.Missing()
	require.Contains(t, missing, document.SectionHome)
	require.NotContains(t, missing, document.SectionContact)
	require.Len(t, missing, len(document.RequiredSections)-1)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	t.Parallel()

	d := document.Seed()
	c := d.Clone()
	require.NoError(t, c.SetSection(document.SectionContact, map[string]string{"email": "x@y.z"}))

	require.False(t, d.Equal(c))
	var contact map[string]any
	require.NoError(t, d.DecodeSection(document.SectionContact, &contact))
	require.Equal(t, "hello@example.com", contact["email"])
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	d, err := document.FromValue(map[string]any{
		"home": map[string]any{"hero": map[string]any{"title": "Hello"}},
	})
	require.NoError(t, err)

	home, err := d.Home()
	require.NoError(t, err)
	require.Equal(t, "Hello", home.Hero.Title)
}

func TestNav_AcceptsStringAndObjectItems(t *testing.T) {
	t.Parallel()

	d, err := document.Parse([]byte(`{"nav":{"items":["home",{"id":"work","label":"Work"}]}}`))
	require.NoError(t, err)

	nav, err := d.Nav()
	require.NoError(t, err)
	require.Equal(t, []string{"home", "work"}, nav.IDs())
	require.Equal(t, "Work", nav.Items[1].Label)
}

func TestSetSection_RejectsInvalidRawJSON(t *testing.T) {
	t.Parallel()

	d := document.New()
	err := d.SetSection("blog", json.RawMessage(`{"posts": [`))
	require.Error(t, err)
	require.False(t, d.Has("blog"))
}
