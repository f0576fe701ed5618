// Package emitter names finished packages and places them in the output
// directory. It is the only component writing there.
package emitter
