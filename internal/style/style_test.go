package style

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/geometry"
)

func TestColorText(t *testing.T) {
	c := RGB(255, 165, 0)
	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "#ffa500", string(b))

	var got Color
	require.NoError(t, got.UnmarshalText([]byte("#00ffff")))
	assert.Equal(t, RGB(0, 255, 255), got)

	assert.Error(t, got.UnmarshalText([]byte("cyan")))

	half := RGB(70, 70, 90).WithAlpha(0x60)
	b, err = half.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "#46465a60", string(b))
	require.NoError(t, got.UnmarshalText(b))
	assert.Equal(t, half, got)
}

func TestStyleFromTOML(t *testing.T) {
	var s struct {
		Style Style `toml:"style"`
	}
	s.Style = Default()
	_, err := toml.Decode(`
[style.node]
selected_boundary = "#ff0000"
connection_point_diameter = 10

[style.connection]
use_data_defined_colors = true
`, &s)
	require.NoError(t, err)

	assert.Equal(t, RGB(255, 0, 0), s.Style.Node.SelectedBoundary)
	assert.Equal(t, RGB(255, 255, 255), s.Style.Node.NormalBoundary, "untouched keys keep defaults")
	assert.True(t, s.Style.Connection.DataDefinedColors)
	assert.Equal(t, 10.0, s.Style.Constants().ConnectionPointDiameter)
}

func TestConstantsDefaults(t *testing.T) {
	assert.Equal(t, geometry.DefaultConstants(), Default().Constants())
	assert.Equal(t, geometry.DefaultConstants(), Style{}.Constants())
}

func TestDataTypeColor(t *testing.T) {
	cs := Default().Connection
	a := cs.DataTypeColor("number")
	assert.Equal(t, a, cs.DataTypeColor("number"))
	assert.NotEqual(t, a, cs.DataTypeColor("text"))

	assert.Equal(t, cs.Normal, cs.ConnectionColor("number"))
	cs.DataDefinedColors = true
	assert.Equal(t, a, cs.ConnectionColor("number"))
	assert.Equal(t, cs.Normal, cs.ConnectionColor(""))
}

func TestLighten(t *testing.T) {
	c := RGB(0, 0, 0)
	assert.Equal(t, c, Lighten(c, 0))
	assert.Equal(t, RGB(255, 255, 255), Lighten(c, 1))
}
