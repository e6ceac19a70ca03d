package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific registry loader.
type Loader interface {
	// Load reads registry files from the given paths, translates them into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter turns task data into cty values for the data context of a render.
type Converter interface {
	// ToCtyValue converts a native Go value, such as a map[string]any decoded
	// from a task file, into its equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)

	// FromJSON converts a JSON document into a cty.Value, keeping the
	// document's structure.
	FromJSON(data []byte) (cty.Value, error)
}
