// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > YAML config >
// Environment variables > Defaults. It exposes the seed table capacities,
// HTTP server settings and the invoice directory to the rest of the application.
package config
