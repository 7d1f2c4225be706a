// Package startup handles application configuration and startup logging
// for the picture frame service.
//
// Configuration is read from environment variables (optionally seeded
// from a .env file), validated, and logged at startup so a deployment's
// effective settings are always visible in the log.
package startup
