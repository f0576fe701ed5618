// Package renderer turns resolved metadata and the file list into the text of
// a backend control manifest: the Debian control file or the RPM spec file.
//
// Templates are plain text/template files embedded in the binary. They see
// every known metadata key, with absent optional fields set to the empty
// string, and fail on any key outside that vocabulary. No defaults live in the
// templates.
package renderer
