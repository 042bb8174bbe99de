// Package logging provides the leveled logger used across the picture
// catalog service.
//
// Levels, from most to least verbose:
//   - DEBUG: scan details, cache decisions, per-request diagnostics
//   - INFO: startup sections, published generations
//   - WARN: skipped categories, recoverable filesystem trouble
//   - ERROR: failed scans, failed writes
//   - FATAL: configuration errors that stop the process
//
// The initial level comes from DEBUG or LOG_LEVEL in the environment and can
// be replaced once configuration has been loaded with SetLevel.
package logging
