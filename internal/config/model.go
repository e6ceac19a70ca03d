package config

import "sort"

// Model is the unified, format-agnostic representation of a project
// registry: every project type with its datasets, layout template and
// annotation result mapping.
type Model struct {
	Projects map[string]*Project
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Projects: make(map[string]*Project)}
}

// ProjectNames returns the names of all projects in lexical order.
func (m *Model) ProjectNames() []string {
	names := make([]string, 0, len(m.Projects))
	for name := range m.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Project is a project type: the kind of annotation task, the data it reads
// and writes, and the layout its tasks are rendered with.
type Project struct {
	Name        string
	Domain      string
	Description string
	// Template is the layout path, relative to the templates directory.
	Template string
	Input    *Dataset
	Output   *Dataset
	// Annotations maps an output field to the layout components producing it.
	Annotations map[string]*Annotation
	// Source is the file the project was declared in.
	Source string
}

// Dataset names a data class and the fields of it a project uses.
type Dataset struct {
	Class  string
	Fields []string
}

// Annotation describes how annotation results for one output field are read
// from the layout: which components produce them, which component they
// annotate and the result types they carry.
type Annotation struct {
	Field    string
	FromName []string
	ToName   string
	Type     []string
	// Value is the binding a result reads from draft data, with the index
	// tokens of FromName. When empty the field's value is used, indexed by
	// those tokens in order.
	Value string
}
