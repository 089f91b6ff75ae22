// Package common holds process-wide helpers shared by the wallet daemon and its tools.
package common

// Version is overridden at build time with -ldflags "-X ...common.Version=..."
var Version = "dev"

// PackageName is used as the prometheus namespace.
const PackageName = "wallet_background"
