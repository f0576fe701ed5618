// Package integration holds end-to-end tests that run the packaging pipeline
// against the real dpkg-deb and rpmbuild executables. Tests are skipped when
// the tools are not installed.
package integration
