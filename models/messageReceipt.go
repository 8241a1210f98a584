package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stockchat_backend/config"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

// MessageReceipt records every inbound event id exactly once. It is the sole
// source of duplicate-suppression truth: the unique index on event_id is what
// makes at-least-once delivery safe.
type MessageReceipt struct {
	ID         int            `gorm:"primary_key" json:"id"`
	EventId    string         `gorm:"size:255;not null;uniqueIndex:uniq_receipt" json:"event_id"`
	Outcome    ReceiptOutcome `gorm:"size:20;not null" json:"outcome"`
	ReceivedAt time.Time      `gorm:"not null" json:"received_at"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// AdmitEvent inserts the receipt for eventId. The first call for a given id
// returns admitted=true; every later call returns admitted=false and performs
// no write (one durable write per first admission only).
//
// If the insert fails for any reason other than a duplicate key, the event
// must be treated as NOT admitted and the whole inbound request rejected so
// the channel retries. Never fail open into double-processing.
func AdmitEvent(ctx context.Context, eventId string) (bool, error) {
	if eventId == "" {
		return false, errors.New("event id is required")
	}
	db := config.GetDB()
	receipt := MessageReceipt{
		EventId:    eventId,
		Outcome:    ReceiptOutcomeApplied,
		ReceivedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&receipt).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
