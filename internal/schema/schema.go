// Package schema holds the HCL decoding structs of the project registry
// files. They mirror the file format exactly and are translated into the
// format-agnostic config.Model by the loader.
package schema

import "github.com/hashicorp/hcl/v2"

// Dataset represents an `input` or `output` block of a project.
type Dataset struct {
	Class  string   `hcl:"class"`
	Fields []string `hcl:"fields,optional"`
}

// Annotation represents an `annotation` block, keyed by the output field it
// fills.
type Annotation struct {
	Field    string   `hcl:"field,label"`
	FromName []string `hcl:"from_name"`
	ToName   string   `hcl:"to_name"`
	Type     []string `hcl:"type"`
	Value    string   `hcl:"value,optional"`
}

// Project represents a `project` block.
type Project struct {
	Name        string        `hcl:"name,label"`
	Domain      string        `hcl:"domain"`
	Description string        `hcl:"description,optional"`
	Template    string        `hcl:"template"`
	Input       *Dataset      `hcl:"input,block"`
	Output      *Dataset      `hcl:"output,block"`
	Annotations []*Annotation `hcl:"annotation,block"`
	DeclRange   hcl.Range     `hcl:",def_range"`
}

// RegistryFile represents the top-level structure of a registry file.
type RegistryFile struct {
	Projects []*Project `hcl:"project,block"`
}
