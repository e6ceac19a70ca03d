// Package app contains the application logic of labelgrid. It defines the
// App struct, its configuration and the lifecycle that ties the registry,
// the render engine, the task store and the render server together,
// decoupled from any specific entrypoint like the CLI.
package app
