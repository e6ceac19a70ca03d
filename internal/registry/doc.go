// Package registry holds the project registry of an App: the project types
// loaded from the configuration model together with their parsed layout
// templates.
//
// During application startup the registry is loaded and then validated, so
// that layouts and the registry entries describing them are known to agree
// before any task is rendered: every template exists and parses, every
// variable a layout binds is a declared input field, and every annotation
// result points at a component the layout actually has.
package registry
