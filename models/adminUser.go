package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	"bitbucket.org/mmdatafocus/stockchat_backend/utils"
	"gorm.io/gorm"
)

// AdminUser authenticates the ops surface (unlocks, login-link issuance).
type AdminUser struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Username     string    `gorm:"size:100;not null;uniqueIndex:uniq_admin_username" json:"username"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrUnauthorized = errors.New("unauthorized")

func VerifyAdmin(ctx context.Context, username, password string) (*AdminUser, error) {
	db := config.GetDB()
	var user AdminUser
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := utils.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

func CreateAdminUser(ctx context.Context, username, password string) (*AdminUser, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := AdminUser{Username: username, PasswordHash: string(hash)}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
