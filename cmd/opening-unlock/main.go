// opening-unlock clears the per-item lock on supply opening rows, for the
// cases where a supplier locked a wrong figure and the day must be repaired
// without waiting for a rotation.
//
// Usage:
//   go run ./cmd/opening-unlock -date 2026-08-28 -outlet 1 [-item chicken-whole]
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
	date := flag.String("date", "", "Required: trading date (YYYY-MM-DD)")
	outlet := flag.Int("outlet", 0, "Required: outlet id")
	item := flag.String("item", "", "Optional: item key; empty unlocks the whole outlet-day")
	flag.Parse()

	tradeDate, err := utils.ParseTradeDate(*date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "-date is required (YYYY-MM-DD)")
		os.Exit(1)
	}
	if *outlet <= 0 {
		fmt.Fprintln(os.Stderr, "-outlet is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	unlocked, err := models.UnlockOpening(context.Background(), tradeDate, *outlet, *item)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unlock failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Unlocked %d opening row(s) for outlet %d on %s\n", unlocked, *outlet, utils.FormatTradeDate(tradeDate))
}
