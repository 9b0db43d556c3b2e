package folio

import "embed"

// EmbeddedAssets contains static assets shipped with the engine:
// gallery.js, the loader for the lightbox WebAssembly module.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
