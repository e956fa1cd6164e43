package web

import "embed"

//go:embed templates/*
var FS embed.FS
