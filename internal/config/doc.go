// Package config defines the run configuration threaded through the
// packaging pipeline and provides helpers to load, validate and save it in
// YAML format.
//
// The Config type replaces every ambient process read: the AppDir, the
// requested backends, output and staging locations, metadata overrides, the
// environment-style metadata inputs and the paths of the external tools.
package config
