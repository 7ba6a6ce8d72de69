// Package log provides structured logging for the driver using zerolog.
//
// Init configures the global Logger once at startup from a Config (level,
// JSON vs console output). Components attach scoped fields with
// WithComponent, WithVolume, and WithCaller rather than passing a logger
// down through constructors.
package log
