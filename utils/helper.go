package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "MM"

// NormalizePrincipal canonicalizes a messaging address (phone in E.164 without
// the leading plus, the way the channel reports senders). The session store is
// keyed by this value, so two spellings of the same phone must collapse.
func NormalizePrincipal(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.New("empty principal address")
	}
	raw := address
	if !strings.HasPrefix(raw, "+") {
		raw = "+" + raw
	}
	p, err := libphonenumber.Parse(raw, CountryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("principal address is not a valid phone number")
	}
	return strings.TrimPrefix(libphonenumber.Format(p, libphonenumber.E164), "+"), nil
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {
	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// ConvertToDate truncates t to midnight in the outlet's timezone.
// Trading dates are compared at day granularity only.
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return t, err
	}
	localTime := t.In(location)
	dateOnly := time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, location)
	return dateOnly, nil
}

// ParseTradeDate parses a YYYY-MM-DD trading date (UTC midnight).
func ParseTradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	return time.Parse("2006-01-02", s)
}

func FormatTradeDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	// Field staff type amounts with thousands separators ("12,500").
	value = strings.ReplaceAll(value, ",", "")
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return dec, nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}
