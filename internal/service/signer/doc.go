// Package signer attaches GPG signatures to built packages with dpkg-sig or
// rpmsign. It runs on the staged artifact, before the package is emitted.
package signer
