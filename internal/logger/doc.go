// Package logger wraps zap with a process-wide sugared logger that writes
// human-readable console lines to stderr, keeping stdout free for the
// plugin API answers.
//
// Pipeline stages never hold a logger themselves: they receive a context and
// pull a named, field-enriched logger from it (WithName, WithKV, FromContext).
package logger
