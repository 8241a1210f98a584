package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"github.com/shopspring/decimal"
)

// StockItem is a catalog entry. OutletId nil means the item is available at
// every outlet; otherwise it is assigned to exactly one outlet.
type StockItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ItemKey   string          `gorm:"size:64;not null;uniqueIndex:uniq_item_key" json:"item_key"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Unit      string          `gorm:"size:20" json:"unit"`
	BuyPrice  decimal.Decimal `gorm:"type:decimal(20,6)" json:"buy_price"`
	OutletId  *int            `gorm:"index" json:"outlet_id"`
	Active    bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ListItemsForOutlet returns the outlet's assigned items plus the shared ones.
func ListItemsForOutlet(ctx context.Context, outletId int) ([]*StockItem, error) {
	db := config.GetDB()
	var items []*StockItem
	if err := db.WithContext(ctx).
		Where("active = true AND (outlet_id IS NULL OR outlet_id = ?)", outletId).
		Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func GetStockItemByKey(ctx context.Context, itemKey string) (*StockItem, error) {
	db := config.GetDB()
	var item StockItem
	if err := db.WithContext(ctx).Where("item_key = ?", itemKey).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
