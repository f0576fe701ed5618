// Package nativepkg contains the core domain types for building native packages
// out of an AppDir.
//
// It defines the backend descriptor (a tagged variant over Debian and RPM),
// the resolved Metadata map, the surveyed FileList, the rendered Manifest and
// the error taxonomy shared by every pipeline stage.
package nativepkg
