// Package surveyor walks an AppDir and produces the package file list and the
// installed-size estimate.
//
// Traversal is lexical and never follows symlinks, so the file list is stable
// for an unchanged tree and nothing below a symlinked directory is listed.
// Sizes are rounded up to the filesystem block size.
package surveyor
