// Package application provides application initialization and dependency wiring.
// It seeds the table registry from configuration and connects it to the
// allocation engine, the HTTP API and the interactive console, keeping the
// main package focused on CLI parsing and orchestration.
package application
