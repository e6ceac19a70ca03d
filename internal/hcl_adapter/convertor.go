package hcl_adapter

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
// Values whose type gocty can imply (structs with cty tags, typed maps and
// slices) are converted directly. Dynamic values such as map[string]any are
// converted through their JSON encoding.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	if ty, err := gocty.ImpliedType(v); err == nil {
		return gocty.ToCtyValue(v, ty)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return c.FromJSON(data)
}

// FromJSON converts a JSON document into a cty.Value whose type is implied
// by the document: objects become object values and arrays tuple values.
func (c *Converter) FromJSON(data []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid JSON data: %w", err)
	}
	v, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid JSON data: %w", err)
	}
	return v, nil
}
