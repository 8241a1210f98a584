package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"gorm.io/gorm"
)

// Outlet is one physical selling point. TradeDate is the outlet's CURRENT
// trading date; it only moves forward via the second ("end of day") rotation,
// never by the wall clock.
type Outlet struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:uniq_outlet_name" json:"name"`
	Timezone  string    `gorm:"size:50" json:"timezone"`
	TradeDate time.Time `gorm:"type:date;not null" json:"trade_date"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOutletById(ctx context.Context, id int) (*Outlet, error) {
	db := config.GetDB()
	var outlet Outlet
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&outlet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &outlet, nil
}

func GetOutletByName(ctx context.Context, name string) (*Outlet, error) {
	db := config.GetDB()
	var outlet Outlet
	if err := db.WithContext(ctx).Where("name = ? AND active = true", name).Take(&outlet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &outlet, nil
}

func ListOutlets(ctx context.Context) ([]*Outlet, error) {
	db := config.GetDB()
	var outlets []*Outlet
	if err := db.WithContext(ctx).Where("active = true").Order("name").Find(&outlets).Error; err != nil {
		return nil, err
	}
	return outlets, nil
}
