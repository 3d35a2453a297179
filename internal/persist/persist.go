// Package persist reads and writes graph records as JSON, YAML or a
// compressed binary format.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"nodeflow/internal/graph"
)

var ErrUnknownFormat = errors.New("unknown file format")

// Codec converts records to and from bytes.
type Codec interface {
	Encode(rec graph.Record) ([]byte, error)
	Decode(data []byte) (graph.Record, error)
	Name() string
}

var (
	JSON   Codec = jsonCodec{}
	YAML   Codec = yamlCodec{}
	Binary Codec = binaryCodec{}
)

// Extensions maps file extensions to codecs.
var Extensions = map[string]Codec{
	".json":  JSON,
	".yaml":  YAML,
	".yml":   YAML,
	".flowz": Binary,
}

// FormatFor picks the codec for a file name by its extension.
func FormatFor(path string) (Codec, error) {
	c, ok := Extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
	return c, nil
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(rec graph.Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

func (jsonCodec) Decode(data []byte) (graph.Record, error) {
	var rec graph.Record
	err := json.Unmarshal(data, &rec)
	return rec, err
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Encode(rec graph.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Decode(data []byte) (graph.Record, error) {
	var rec graph.Record
	err := yaml.Unmarshal(data, &rec)
	return rec, err
}

// binaryMagic starts every binary file; the byte after it is the version.
var binaryMagic = []byte("NFLZ")

const binaryVersion = 1

// binaryCodec is msgpack compressed with zstd.
type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

func (binaryCodec) Encode(rec graph.Record) ([]byte, error) {
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("msgpack encoding failed: %w", err)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	out := append([]byte{}, binaryMagic...)
	out = append(out, binaryVersion)
	return encoder.EncodeAll(raw, out), nil
}

func (binaryCodec) Decode(data []byte) (graph.Record, error) {
	var rec graph.Record
	head := len(binaryMagic) + 1
	if len(data) < head || !bytes.Equal(data[:len(binaryMagic)], binaryMagic) {
		return rec, errors.New("not a nodeflow binary file")
	}
	if v := data[len(binaryMagic)]; v != binaryVersion {
		return rec, fmt.Errorf("unsupported binary version %d", v)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return rec, err
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data[head:], nil)
	if err != nil {
		return rec, fmt.Errorf("decompression failed: %w", err)
	}
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("msgpack decoding failed: %w", err)
	}
	return rec, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their file names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the shape of a record before it reaches the graph. Errors
// wrap graph.ErrInvalidRecord.
func Validate(rec graph.Record) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", graph.ErrInvalidRecord, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", graph.ErrInvalidRecord, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Record.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "uuid":
		return field + " is not a uuid"
	case "nefield":
		return field + " must differ from " + strings.ToLower(fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param())
	}
}

// Marshal validates rec and encodes it.
func Marshal(rec graph.Record, c Codec) ([]byte, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}
	return c.Encode(rec)
}

// Unmarshal decodes and validates a record.
func Unmarshal(data []byte, c Codec) (graph.Record, error) {
	rec, err := c.Decode(data)
	if err != nil {
		return graph.Record{}, fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	if err := Validate(rec); err != nil {
		return graph.Record{}, err
	}
	return rec, nil
}

// ReadFile decodes the record stored at path.
func ReadFile(path string) (graph.Record, error) {
	c, err := FormatFor(path)
	if err != nil {
		return graph.Record{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return graph.Record{}, fmt.Errorf("load %s: %w", path, err)
	}
	rec, err := Unmarshal(data, c)
	if err != nil {
		return graph.Record{}, fmt.Errorf("load %s: %w", path, err)
	}
	return rec, nil
}

// WriteFile stores rec at path. The file is replaced atomically.
func WriteFile(path string, rec graph.Record) error {
	c, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Marshal(rec, c)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// SaveFile writes the whole graph to path.
func SaveFile(path string, g *graph.Graph) error {
	return WriteFile(path, g.Save())
}

// LoadFile replaces the contents of g with the graph stored at path. On
// error g is left unchanged.
func LoadFile(path string, g *graph.Graph) error {
	rec, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := g.Load(rec); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
