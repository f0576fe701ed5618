// Package testutil builds AppDir fixtures and fake packaging tools for tests.
package testutil
