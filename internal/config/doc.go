// Package config provides environment-based configuration.
//
// Loads from a .env file when present (godotenv), applies defaults, and
// validates required fields and tunable bounds.
package config
