// Package appdir reads an AppDir from disk.
//
// It locates the root desktop entry and the well-known data locations
// (applications, icons, MIME types, cloud providers) and turns the root
// desktop entry into metadata facts. The AppDir is never modified.
package appdir
