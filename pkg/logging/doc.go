// Package logging configures the structured loggers used by the probe and
// the handlerprobe CLI.
//
// It is a thin layer over log/slog. Components accept a *slog.Logger through
// an option and fall back to Nop() when none is supplied:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatJSON,
//	})
//
//	p := probe.New(handler, probe.WithLogger(logger))
//
// Probe log lines carry a "component" attribute (see Component) so output
// from several probes in one test binary can be told apart.
package logging
