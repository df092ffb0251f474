// Package integration provides integration tests for the catalog-sync server.
// These tests run the complete server against a fake upstream and drive every sync mode
// through the HTTP API.
package integration
