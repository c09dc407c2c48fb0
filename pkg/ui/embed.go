// Package ui provides the embedded web UI for the teardown server.
package ui

import (
	_ "embed"
)

// IndexHTML is the single-page teardown UI. It talks to /api/v1 and sends
// the server API key, when one is entered, as X-API-Key.
//
//go:embed index.html
var IndexHTML []byte
