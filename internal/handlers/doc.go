// Package handlers provides HTTP request handlers for the picture frame API.
//
// It includes handlers for:
//   - Rotation: picking the next image and resetting history
//   - Album listing and the session album filter
//   - Triggering catalog scans
//   - Health checks and version info
package handlers
