package config

import (
	"os"
	"strings"
)

// DevToolsEnabled gates the event simulator and session inspector endpoints.
// These bypass the transport and must never be reachable in production.
//
// Set via env:
// - DEV_TOOLS_ENABLED=true
//
// The flag is ignored (always false) when GO_ENV=production.
func DevToolsEnabled() bool {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_TOOLS_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SeedOpeningsOnRotation controls whether a second rotation seeds the new
// trading date's opening rows from the closing counts it consumed.
//
// Set via env:
// - SEED_OPENINGS_ON_ROTATION=true
func SeedOpeningsOnRotation() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_OPENINGS_ON_ROTATION")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
