// Package packager runs the packaging pipeline for every requested backend:
// resolve metadata, survey the AppDir, plan desktop integration, render the
// manifest, invoke the backend, optionally sign, and emit the package.
//
// Stages run strictly in sequence. The first failure aborts the run and is
// returned prefixed with the stage name; nothing is written to the output
// directory unless the final stage is reached.
package packager
