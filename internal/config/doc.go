// Package config handles loading and validation of the YAML service
// configuration, covering the worker pool, audio parameters, chunking,
// the noise filter, the merge step, and logging.
package config
