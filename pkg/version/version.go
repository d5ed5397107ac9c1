package version

// Version is overridden at build time via -ldflags "-X simtrack/pkg/version.Version=...".
var Version = "v0.1.0-dev"
