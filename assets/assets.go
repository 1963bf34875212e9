package assets

import "embed"

// EmbeddedFiles holds the page templates and static files served by the portal
//
//go:embed templates static
var EmbeddedFiles embed.FS
