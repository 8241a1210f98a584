package models

import (
	"bitbucket.org/mmdatafocus/stockchat_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Outlet{},
		&StockItem{},
		&Operator{},
		&AdminUser{},
		&ChatSession{},
		&MessageReceipt{},
		&SupplyOpening{},
		&StockClosing{},
		&DayExpense{},
		&DayDeposit{},
		&TradingPeriodLock{},
		&TradingCloseCount{},
		&PeriodSnapshot{},
	)
	if err != nil {
		config.LogError(config.GetLogger(), "migration.go", "MigrateTable", "AutoMigrate", "", err)
	}
}
