package furrow

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/aretw0/furrow.Version=...".
var Version = "0.1.0-dev"
