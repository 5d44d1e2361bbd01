package config

// Version is the podrestore binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/podrestore/internal/config.Version=<tag>"
var Version = "dev"
