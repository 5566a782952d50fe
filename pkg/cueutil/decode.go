// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
)

// DefaultMaxFileSize bounds the size of a CUE file accepted for decoding (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	decodeOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures decoding behavior.
	Option func(*decodeOptions)
)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *decodeOptions) { o.maxFileSize = size }
}

// WithConcrete sets whether all values must be concrete after unification.
// Default is true. Config files pass false because every field is optional.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) { o.concrete = concrete }
}

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *decodeOptions) { o.filename = name }
}

func resolveOptions(opts []Option) decodeOptions {
	o := decodeOptions{maxFileSize: DefaultMaxFileSize, concrete: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.filename == "" {
		o.filename = "<input>"
	}
	return o
}

// Unify compiles schema and data, unifies data with the schema definition at
// defPath (e.g. "#Project") and validates the result.
func Unify(schema, data []byte, defPath string, opts ...Option) (cue.Value, error) {
	o := resolveOptions(opts)

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	def := schemaValue.LookupPath(cue.ParsePath(defPath))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", defPath, def.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), o.filename)
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	return unified, nil
}

// Decode validates data against the schema definition at defPath and decodes
// the unified value into a T.
func Decode[T any](schema, data []byte, defPath string, opts ...Option) (*T, error) {
	unified, err := Unify(schema, data, defPath, opts...)
	if err != nil {
		return nil, err
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, resolveOptions(opts).filename)
	}
	return &out, nil
}

// DecodeFile reads path and decodes it with Decode.
func DecodeFile[T any](schema []byte, path, defPath string, opts ...Option) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	opts = append([]Option{WithFilename(path)}, opts...)
	return Decode[T](schema, data, defPath, opts...)
}

// Encode renders a Go value as formatted CUE source. Field names follow the
// value's json tags.
func Encode(v any) ([]byte, error) {
	value := cuecontext.New().Encode(v)
	if value.Err() != nil {
		return nil, fmt.Errorf("failed to encode value: %w", value.Err())
	}
	out, err := format.Node(value.Syntax(cue.Final(), cue.Concrete(true)))
	if err != nil {
		return nil, fmt.Errorf("failed to format CUE: %w", err)
	}
	return out, nil
}

// CheckFileSize returns an error when data exceeds maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
