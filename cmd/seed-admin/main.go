// seed-admin creates or updates the ops console user for the internal
// endpoints (/internal/ops/login).
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-admin -username stockAdmin -password '...'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"gorm.io/gorm"
)

func main() {
	username := flag.String("username", "stockAdmin", "ops console username")
	password := flag.String("password", "", "Required: ops console password")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "-password is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var existing models.AdminUser
	err := db.WithContext(ctx).Where("username = ?", *username).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup admin user: %v\n", err)
			os.Exit(1)
		}
		if _, err := models.CreateAdminUser(ctx, *username, *password); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q\n", *username)
		return
	}

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	if err := db.WithContext(ctx).Model(&models.AdminUser{}).
		Where("username = ?", *username).
		Update("password_hash", string(hashed)).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated admin user: username=%q\n", *username)
}
