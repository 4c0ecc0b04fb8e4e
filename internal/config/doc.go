// Package config loads, normalizes, and validates streamdigest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SENDER_EMAIL, EMAIL_PASSWORD, and the SFTP_* variables. The Config type
// centralizes the email size budget, remote push credentials, and capture
// settings so a run reads them exactly once at startup.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
