package cmd

import (
	"nodeflow/internal/geometry"
	"nodeflow/internal/graph"
)

var (
	numberType = graph.DataType{ID: "number", Name: "Number"}
	textType   = graph.DataType{ID: "text", Name: "Text"}
)

// demoModel is a data-only node registered under its own type tag.
type demoModel struct {
	graph.Basic
	name      string
	widget    geometry.Size
	resizable bool
}

func (d *demoModel) Name() string            { return d.name }
func (d *demoModel) SizeHint() geometry.Size { return d.widget }
func (d *demoModel) Resizable() bool         { return d.resizable }

// demoModels are the node types the editor offers, in menu order.
var demoModels = []struct {
	name string
	make func() *demoModel
}{
	{"source", func() *demoModel {
		return &demoModel{name: "source", Basic: graph.Basic{
			Title:   "Number",
			Outputs: []graph.Port{{Type: numberType, Caption: "value"}},
		}}
	}},
	{"sum", func() *demoModel {
		return &demoModel{name: "sum", Basic: graph.Basic{
			Title:   "Sum",
			Inputs:  []graph.Port{{Type: numberType, Caption: "a"}, {Type: numberType, Caption: "b"}},
			Outputs: []graph.Port{{Type: numberType, Caption: "sum"}},
		}}
	}},
	{"format", func() *demoModel {
		return &demoModel{name: "format", Basic: graph.Basic{
			Title:   "Format",
			Inputs:  []graph.Port{{Type: numberType, Caption: "n"}},
			Outputs: []graph.Port{{Type: textType, Caption: "text"}},
		}}
	}},
	{"text", func() *demoModel {
		return &demoModel{name: "text", Basic: graph.Basic{
			Title:   "Text",
			Outputs: []graph.Port{{Type: textType}},
		}}
	}},
	{"display", func() *demoModel {
		return &demoModel{
			name:      "display",
			Basic:     graph.Basic{Title: "Display", Inputs: []graph.Port{{Type: textType}}},
			widget:    geometry.Size{W: 48, H: 32},
			resizable: true,
		}
	}},
}

// newRegistry knows the demo node types plus the built-in basic model.
func newRegistry() *graph.Registry {
	r := graph.NewRegistry()
	for _, m := range demoModels {
		r.Register(m.name, func() graph.NodeModel { return m.make() })
	}
	return r
}
