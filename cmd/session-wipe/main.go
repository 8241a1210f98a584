// session-wipe hard-deletes a chat session (DB row + cache), for principals
// stuck in a corrupted state that the flows cannot recover from.
//
// Usage:
//   go run ./cmd/session-wipe -principal 959123456789
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
)

func main() {
	principalArg := flag.String("principal", "", "Required: messaging principal (phone)")
	flag.Parse()

	principal, err := utils.NormalizePrincipal(*principalArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "-principal is required and must be a valid phone number: %v\n", err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	if err := models.WipeSession(context.Background(), principal); err != nil {
		fmt.Fprintf(os.Stderr, "wipe failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wiped session for %s\n", principal)
}
