// Package internal holds build-time metadata shared across commands.
package internal

// Version is the build version. Overridden at build time with
// -ldflags "-X github.com/openvault/ledger-node/internal.Version=...".
var Version = "dev"
