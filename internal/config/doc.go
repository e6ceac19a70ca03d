// Package config defines the format-agnostic model of the project registry,
// along with the interfaces (Loader, Converter) for loading it and for
// turning task data into values the engine understands.
//
// The Model is the single source of truth for the registry and app packages.
// The HCL implementation of the interfaces lives in hcl_adapter.
package config
