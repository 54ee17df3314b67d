// Package config loads, normalizes, and validates pillcheck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_API_KEY and SUPABASE_URL. The Config type centralizes every knob the
// daemon and CLI need: scoring thresholds, attempt limits, and external
// service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
