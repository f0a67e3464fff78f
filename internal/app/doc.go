// Package app wires the plugin bring-up pipeline together: discovery,
// registration, dependency validation, metadata and initialization. It is
// decoupled from any specific entrypoint like a CLI.
package app
