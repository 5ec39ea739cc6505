package payments

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// NormalizeCardNumber strips the spaces a card number may be grouped with.
func NormalizeCardNumber(number string) string {
	return strings.ReplaceAll(strings.TrimSpace(number), " ", "")
}

// ValidCardNumber accepts 13 to 19 digits, optionally grouped by spaces.
func ValidCardNumber(number string) bool {
	digits := NormalizeCardNumber(number)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return allDigits(digits)
}

// ValidExpiry accepts MM/YY that is not before the month of now.
func ValidExpiry(expiry string, now time.Time) bool {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	yy, err := strconv.Atoi(parts[1])
	if err != nil || !allDigits(parts[1]) {
		return false
	}

	year := 2000 + yy
	if year != now.Year() {
		return year > now.Year()
	}
	return month >= int(now.Month())
}

func ValidCVC(cvc string) bool {
	return (len(cvc) == 3 || len(cvc) == 4) && allDigits(cvc)
}

// Validate re-checks a payment form server side.
func (in CardInput) Validate(now time.Time) error {
	if !in.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, in.PaymentMethod)
	}
	if !in.PaymentMethod.RequiresCard() {
		return nil
	}
	if strings.TrimSpace(in.CardName) == "" {
		return ErrMissingCardName
	}
	if !ValidCardNumber(in.CardNumber) {
		return ErrInvalidCardNumber
	}
	if !ValidExpiry(in.ExpiryDate, now) {
		return ErrInvalidExpiry
	}
	if !ValidCVC(in.CVC) {
		return ErrInvalidCVC
	}
	return nil
}

// RegisterValidators adds the cardnumber, cardexpiry and cvc tags.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return ValidCardNumber(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("cardexpiry", func(fl validator.FieldLevel) bool {
		return ValidExpiry(fl.Field().String(), time.Now())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("cvc", func(fl validator.FieldLevel) bool {
		return ValidCVC(fl.Field().String())
	})
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
