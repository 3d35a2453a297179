// Package style holds the colors and sizes used to paint a scene.
package style

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"nodeflow/internal/geometry"
)

// Color is an RGBA color that reads and writes as "#rrggbb" text, so it
// can sit directly in a TOML file.
type Color struct {
	R, G, B, A uint8
}

func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 0xff}
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String is the hex form, with an alpha byte appended when not opaque.
func (c Color) String() string {
	if c.A == 0xff {
		return c.Hex()
	}
	return fmt.Sprintf("%s%02x", c.Hex(), c.A)
}

// WithAlpha returns the color with its alpha replaced.
func (c Color) WithAlpha(a uint8) Color {
	c.A = a
	return c
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts "#rgb", "#rrggbb" and "#rrggbbaa".
func (c *Color) UnmarshalText(text []byte) error {
	s := string(text)
	alpha := uint64(0xff)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return fmt.Errorf("invalid color %q: %w", s, err)
		}
		s, alpha = s[:7], a
	}
	cf, err := colorful.Hex(s)
	if err != nil {
		return fmt.Errorf("invalid color %q: %w", text, err)
	}
	r, g, b := cf.RGB255()
	*c = RGB(r, g, b).WithAlpha(uint8(alpha))
	return nil
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return RGB(r, g, b)
}

type NodeStyle struct {
	NormalBoundary   Color   `toml:"normal_boundary"`
	SelectedBoundary Color   `toml:"selected_boundary"`
	Fill             Color   `toml:"fill"`
	SelectedFill     Color   `toml:"selected_fill"`
	Shadow           Color   `toml:"shadow"`
	Font             Color   `toml:"font"`
	FontFaded        Color   `toml:"font_faded"`
	ConnectionPoint  Color   `toml:"connection_point"`
	FilledPoint      Color   `toml:"filled_connection_point"`
	Warning          Color   `toml:"warning"`
	Error            Color   `toml:"error"`
	PenWidth         float64 `toml:"pen_width"`
	HoveredPenWidth  float64 `toml:"hovered_pen_width"`
	PointDiameter    float64 `toml:"connection_point_diameter"`
	Opacity          float64 `toml:"opacity"`
	VerticalSpacing  float64 `toml:"vertical_spacing"`
	StatusIconSize   float64 `toml:"status_icon_size"`
	ResizeHandleSize float64 `toml:"resize_handle_size"`
	CornerRadius     float64 `toml:"corner_radius"`
	HandleColor      Color   `toml:"resize_handle"`
	StatusUpdated    Color   `toml:"status_updated"`
	StatusProcessing Color   `toml:"status_processing"`
	StatusPending    Color   `toml:"status_pending"`
	StatusEmpty      Color   `toml:"status_empty"`
	StatusPartial    Color   `toml:"status_partial"`
}

type ConnectionStyle struct {
	Construction      Color   `toml:"construction"`
	Normal            Color   `toml:"normal"`
	Selected          Color   `toml:"selected"`
	SelectedHalo      Color   `toml:"selected_halo"`
	Hovered           Color   `toml:"hovered"`
	LineWidth         float64 `toml:"line_width"`
	ConstructionWidth float64 `toml:"construction_line_width"`
	PointDiameter     float64 `toml:"point_diameter"`
	DataDefinedColors bool    `toml:"use_data_defined_colors"`
}

type ViewStyle struct {
	Background Color `toml:"background"`
	FineGrid   Color `toml:"fine_grid"`
	CoarseGrid Color `toml:"coarse_grid"`
	RubberBand Color `toml:"rubber_band"`
}

type GroupStyle struct {
	Fill     Color   `toml:"fill"`
	Boundary Color   `toml:"boundary"`
	Locked   Color   `toml:"locked"`
	Selected Color   `toml:"selected"`
	Title    Color   `toml:"title"`
	Margin   float64 `toml:"margin"`
}

// Style is everything a painter needs besides the geometry.
type Style struct {
	Node       NodeStyle       `toml:"node"`
	Connection ConnectionStyle `toml:"connection"`
	View       ViewStyle       `toml:"view"`
	Group      GroupStyle      `toml:"group"`
}

// Default returns the dark theme.
func Default() Style {
	white := RGB(255, 255, 255)
	return Style{
		Node: NodeStyle{
			NormalBoundary:   white,
			SelectedBoundary: RGB(255, 165, 0),
			Fill:             RGB(80, 80, 80),
			SelectedFill:     RGB(88, 88, 88),
			Shadow:           RGB(20, 20, 20),
			Font:             white,
			FontFaded:        RGB(128, 128, 128),
			ConnectionPoint:  RGB(169, 169, 169),
			FilledPoint:      RGB(0, 255, 255),
			Warning:          RGB(128, 128, 0),
			Error:            RGB(255, 0, 0),
			PenWidth:         1.0,
			HoveredPenWidth:  1.5,
			PointDiameter:    geometry.DefaultConnectionPointDiameter,
			Opacity:          0.8,
			VerticalSpacing:  geometry.DefaultVerticalSpacing,
			StatusIconSize:   geometry.DefaultStatusIconSize,
			ResizeHandleSize: geometry.DefaultResizeHandleSize,
			CornerRadius:     3,
			HandleColor:      RGB(128, 128, 128),
			StatusUpdated:    RGB(0, 200, 0),
			StatusProcessing: RGB(0, 120, 255),
			StatusPending:    RGB(255, 200, 0),
			StatusEmpty:      RGB(160, 160, 160),
			StatusPartial:    RGB(200, 120, 255),
		},
		Connection: ConnectionStyle{
			Construction:      RGB(128, 128, 128),
			Normal:            RGB(0, 139, 139),
			Selected:          RGB(100, 100, 100),
			SelectedHalo:      RGB(255, 165, 0),
			Hovered:           RGB(224, 255, 255),
			LineWidth:         3,
			ConstructionWidth: 2,
			PointDiameter:     10,
		},
		View: ViewStyle{
			Background: RGB(53, 53, 53),
			FineGrid:   RGB(60, 60, 60),
			CoarseGrid: RGB(25, 25, 25),
			RubberBand: RGB(255, 165, 0),
		},
		Group: GroupStyle{
			Fill:     RGB(70, 70, 90).WithAlpha(0x60),
			Boundary: RGB(150, 150, 190),
			Locked:   RGB(190, 90, 90),
			Selected: RGB(255, 165, 0),
			Title:    white,
			Margin:   15,
		},
	}
}

// Constants extracts the numbers the node layout depends on.
func (s Style) Constants() geometry.Constants {
	c := geometry.DefaultConstants()
	if s.Node.VerticalSpacing > 0 {
		c.VerticalSpacing = s.Node.VerticalSpacing
	}
	if s.Node.PointDiameter > 0 {
		c.ConnectionPointDiameter = s.Node.PointDiameter
	}
	if s.Node.StatusIconSize > 0 {
		c.StatusIconSize = s.Node.StatusIconSize
	}
	if s.Node.ResizeHandleSize > 0 {
		c.ResizeHandleSize = s.Node.ResizeHandleSize
	}
	return c
}

// DataTypeColor derives a stable color from a data type id. Every type id
// maps to its own hue at fixed saturation and lightness.
func (s ConnectionStyle) DataTypeColor(typeID string) Color {
	h := fnv.New32a()
	h.Write([]byte(typeID))
	hue := float64(h.Sum32() % 360)
	return fromColorful(colorful.Hsl(hue, 0.65, 0.55))
}

// ConnectionColor is the normal color of a connection carrying typeID.
func (s ConnectionStyle) ConnectionColor(typeID string) Color {
	if s.DataDefinedColors && typeID != "" {
		return s.DataTypeColor(typeID)
	}
	return s.Normal
}

// Lighten blends the color toward white by f in [0,1].
func Lighten(c Color, f float64) Color {
	cf, _ := colorful.MakeColor(c)
	return fromColorful(cf.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, f)).WithAlpha(c.A)
}
