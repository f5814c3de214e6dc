package ussdgw

// Version is the gateway release. Builds may override it with
// -ldflags "-X github.com/aretw0/ussdgw.Version=...".
var Version = "0.3.0"
