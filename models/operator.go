package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"gorm.io/gorm"
)

// Operator is a field-staff identity. The code is what a principal types to
// authenticate; attendants must carry a resolvable outlet assignment,
// suppliers and supervisors roam across outlets.
type Operator struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"size:20;not null;uniqueIndex:uniq_operator_code" json:"code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Role      Role      `gorm:"size:20;not null" json:"role"`
	OutletId  *int      `gorm:"index" json:"outlet_id"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOperatorByCode(ctx context.Context, code string) (*Operator, error) {
	db := config.GetDB()
	var op Operator
	if err := db.WithContext(ctx).Where("code = ? AND active = true", code).Take(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &op, nil
}
