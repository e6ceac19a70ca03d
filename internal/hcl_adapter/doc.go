// Package hcl_adapter provides the HCL implementation of the config.Loader
// and config.Converter interfaces: registry files are parsed with hclparse,
// decoded with gohcl into the schema structs and translated into the
// format-agnostic config.Model. Task data is converted into cty values.
package hcl_adapter
