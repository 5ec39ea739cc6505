package payments

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCardNumber(t *testing.T) {
	assert.True(t, ValidCardNumber("4242424242424242"))
	assert.True(t, ValidCardNumber("4242 4242 4242 4242"))
	assert.True(t, ValidCardNumber("4222222222222"))
	assert.False(t, ValidCardNumber("4242"))
	assert.False(t, ValidCardNumber("4242-4242-4242-4242"))
	assert.False(t, ValidCardNumber("12345678901234567890"))
	assert.False(t, ValidCardNumber(""))
}

func TestValidExpiry(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, ValidExpiry("06/26", now))
	assert.True(t, ValidExpiry("01/27", now))
	assert.False(t, ValidExpiry("05/26", now))
	assert.False(t, ValidExpiry("12/25", now))
	assert.False(t, ValidExpiry("13/27", now))
	assert.False(t, ValidExpiry("6/27", now))
	assert.False(t, ValidExpiry("06-27", now))
}

func TestValidCVC(t *testing.T) {
	assert.True(t, ValidCVC("123"))
	assert.True(t, ValidCVC("1234"))
	assert.False(t, ValidCVC("12"))
	assert.False(t, ValidCVC("12a"))
}

func validCard() CardInput {
	return CardInput{
		PaymentMethod: MethodCard,
		CardName:      "Ada Lovelace",
		CardNumber:    "4242 4242 4242 4242",
		ExpiryDate:    "12/99",
		CVC:           "123",
	}
}

func TestTokenizeKeepsOnlyLast4(t *testing.T) {
	details, err := NewSimulatedProcessor().Tokenize(context.Background(), validCard())
	require.NoError(t, err)

	assert.Equal(t, "visa", details.CardBrand)
	assert.Equal(t, "4242", details.CardLast4)
	assert.Equal(t, StatusCompleted, details.PaymentStatus)
	assert.Regexp(t, `^tok_[0-9a-f]{32}$`, details.PaymentToken)
	assert.NotContains(t, details.PaymentToken, "4242424242424242")
}

func TestTokenizeReservedNeedsNoCard(t *testing.T) {
	details, err := NewSimulatedProcessor().Tokenize(context.Background(), CardInput{PaymentMethod: MethodReserved})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, details.PaymentStatus)
	assert.Empty(t, details.PaymentToken)
}

func TestTokenizeRejects(t *testing.T) {
	p := NewSimulatedProcessor()

	in := validCard()
	in.CardNumber = "4000 0000 0000 0000"
	_, err := p.Tokenize(context.Background(), in)
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	in = validCard()
	in.CVC = "1"
	_, err = p.Tokenize(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidCVC)

	in = validCard()
	in.PaymentMethod = "cash"
	_, err = p.Tokenize(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestCardBrand(t *testing.T) {
	assert.Equal(t, "mastercard", CardBrand("5555555555554444"))
	assert.Equal(t, "amex", CardBrand("378282246310005"))
	assert.Equal(t, "meeza", CardBrand("5078031234567890"))
	assert.Equal(t, "•••• 4444", Mask("4444"))
}

func TestRegisterValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	type form struct {
		Number string `validate:"cardnumber"`
		Expiry string `validate:"cardexpiry"`
		CVC    string `validate:"cvc"`
	}
	assert.NoError(t, v.Struct(form{Number: "4242424242424242", Expiry: "12/99", CVC: "999"}))
	assert.Error(t, v.Struct(form{Number: "42", Expiry: "12/99", CVC: "999"}))
}
