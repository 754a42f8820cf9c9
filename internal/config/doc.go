// Package config loads, normalizes, and validates subconform configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file and honours environment
// fallbacks such as SUBCONFORM_LLM_API_KEY. The Config type centralizes the
// knobs the daemon, pipeline and CLI need so constraint, repair and gender
// policies are validated once.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
