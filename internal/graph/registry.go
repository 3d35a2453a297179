package graph

import (
	"fmt"
	"slices"

	"nodeflow/internal/geometry"
)

// NodeModel is the pluggable behavior behind a node type. The graph keeps
// only the type tag and this handle; concrete models live with the program.
type NodeModel interface {
	// Name is the type tag used by the registry and in saved files.
	Name() string
	Caption() string
	// Ports returns the initial ports of a new node.
	Ports(t PortType) []Port
	// SizeHint is the size of the embedded widget, zero when there is none.
	SizeHint() geometry.Size
	Resizable() bool
	Save() map[string]any
	Load(data map[string]any) error
}

type Factory func() NodeModel

// Registry maps type tags to model factories.
type Registry struct {
	factories map[string]Factory
	names     []string
}

// NewRegistry returns a registry that already knows the Basic model.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(BasicModelName, func() NodeModel { return &Basic{} })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	if _, ok := r.factories[name]; !ok {
		r.names = append(r.names, name)
	}
	r.factories[name] = f
}

func (r *Registry) Create(name string) (NodeModel, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return f(), nil
}

// Names lists registered type tags in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

const BasicModelName = "basic"

// Basic is a data-only model: a title, fixed ports and free-form data.
type Basic struct {
	Title   string
	Inputs  []Port
	Outputs []Port
	Data    map[string]any
}

func (b *Basic) Name() string { return BasicModelName }

func (b *Basic) Caption() string {
	if b.Title == "" {
		return "Node"
	}
	return b.Title
}

func (b *Basic) Ports(t PortType) []Port {
	switch t {
	case In:
		return slices.Clone(b.Inputs)
	case Out:
		return slices.Clone(b.Outputs)
	}
	return nil
}

func (b *Basic) SizeHint() geometry.Size { return geometry.Size{} }
func (b *Basic) Resizable() bool         { return false }

func (b *Basic) Save() map[string]any {
	out := map[string]any{}
	if b.Title != "" {
		out["title"] = b.Title
	}
	if len(b.Data) > 0 {
		out["data"] = b.Data
	}
	return out
}

func (b *Basic) Load(data map[string]any) error {
	if v, ok := data["title"]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("basic model: title is %T, want string", v)
		}
		b.Title = s
	}
	if v, ok := data["data"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("basic model: data is %T, want object", v)
		}
		b.Data = m
	}
	return nil
}
