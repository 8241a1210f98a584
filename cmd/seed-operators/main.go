// seed-operators loads outlets, items and operator codes for development.
// It is idempotent: re-running updates rows in place by their natural keys.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-operators
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/models"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	today, err := utils.ConvertToDate(time.Now(), "Asia/Yangon")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to compute trading date: %v\n", err)
		os.Exit(1)
	}

	outlets := []models.Outlet{
		{Name: "Downtown", Timezone: "Asia/Yangon", TradeDate: today, Active: true},
		{Name: "Riverside", Timezone: "Asia/Yangon", TradeDate: today, Active: true},
	}
	for i := range outlets {
		if err := upsertOutlet(ctx, db, &outlets[i]); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed outlet %q: %v\n", outlets[i].Name, err)
			os.Exit(1)
		}
	}

	items := []models.StockItem{
		{ItemKey: "chicken-whole", Name: "Whole chicken", Unit: "pcs", BuyPrice: decimal.NewFromInt(8500), Active: true},
		{ItemKey: "rice-bag", Name: "Rice bag", Unit: "bag", BuyPrice: decimal.NewFromInt(62000), Active: true},
		{ItemKey: "cooking-oil", Name: "Cooking oil", Unit: "litre", BuyPrice: decimal.NewFromInt(9800), Active: true},
		{ItemKey: "eggs-tray", Name: "Egg tray", Unit: "tray", BuyPrice: decimal.NewFromInt(5200), Active: true},
	}
	for i := range items {
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "unit", "buy_price", "active"}),
		}).Create(&items[i]).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed item %q: %v\n", items[i].ItemKey, err)
			os.Exit(1)
		}
	}

	operators := []models.Operator{
		{Code: "AT01", Name: "Aye Thida", Role: models.RoleAttendant, OutletId: &outlets[0].ID, Active: true},
		{Code: "AT02", Name: "Ko Min", Role: models.RoleAttendant, OutletId: &outlets[1].ID, Active: true},
		{Code: "SP01", Name: "U Kyaw", Role: models.RoleSupplier, Active: true},
		{Code: "SV01", Name: "Daw Nwe", Role: models.RoleSupervisor, Active: true},
	}
	for i := range operators {
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "role", "outlet_id", "active"}),
		}).Create(&operators[i]).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed operator %q: %v\n", operators[i].Code, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Seeded %d outlets, %d items, %d operators (trade date %s)\n",
		len(outlets), len(items), len(operators), utils.FormatTradeDate(today))
}

// upsertOutlet keeps an existing outlet's trade date; rotation owns it.
func upsertOutlet(ctx context.Context, db *gorm.DB, outlet *models.Outlet) error {
	var existing models.Outlet
	err := db.WithContext(ctx).Where("name = ?", outlet.Name).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.WithContext(ctx).Create(outlet).Error
	}
	if err != nil {
		return err
	}
	outlet.ID = existing.ID
	return db.WithContext(ctx).Model(&models.Outlet{}).Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"timezone": outlet.Timezone, "active": outlet.Active}).Error
}
