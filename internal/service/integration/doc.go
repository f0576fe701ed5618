// Package integration plans the files that hook an installed AppDir into the
// host system: relative symlinks for desktop files, icons, MIME and
// cloud-provider definitions, /usr/bin launcher scripts and the
// linuxdeploy.conf marker telling AppRun hooks where the AppDir lives.
//
// Nothing is written to disk here. The planner returns generated file list
// entries that the invoker materializes in the staging tree.
package integration
