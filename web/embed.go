package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds static assets.
//
//go:embed static/**/*
var Static embed.FS

// Locales embeds the translation tables, one JSON file per language.
//
//go:embed locales/*.json
var Locales embed.FS
