// Package invoker stages the package payload and runs the native packaging
// tool (dpkg-deb or rpmbuild) against it.
//
// The staging directory is owned by one run at a time, guarded by a PID
// marker. The backend is run synchronously with its output captured; a
// non-zero exit or a missing artifact is a terminal error.
package invoker
