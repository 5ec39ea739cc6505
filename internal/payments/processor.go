package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Processor turns a payment form into a stored authorization. The card
// number and CVC do not leave Tokenize.
type Processor interface {
	Tokenize(ctx context.Context, in CardInput) (*PaymentDetails, error)
}

type simulatedProcessor struct {
	now func() time.Time
}

// NewSimulatedProcessor approves every well-formed card. Card numbers
// ending in 0000 are declined so failure paths can be exercised.
func NewSimulatedProcessor() Processor {
	return &simulatedProcessor{now: time.Now}
}

func (p *simulatedProcessor) Tokenize(ctx context.Context, in CardInput) (*PaymentDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Validate(p.now()); err != nil {
		return nil, err
	}

	if !in.PaymentMethod.RequiresCard() {
		return &PaymentDetails{
			PaymentMethod: in.PaymentMethod,
			CardName:      strings.TrimSpace(in.CardName),
			PaymentStatus: StatusPending,
		}, nil
	}

	digits := NormalizeCardNumber(in.CardNumber)
	if strings.HasSuffix(digits, "0000") {
		return nil, ErrPaymentDeclined
	}

	return &PaymentDetails{
		PaymentMethod: in.PaymentMethod,
		CardName:      strings.TrimSpace(in.CardName),
		CardBrand:     CardBrand(digits),
		CardLast4:     digits[len(digits)-4:],
		PaymentToken:  "tok_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		PaymentStatus: StatusCompleted,
	}, nil
}

// CardBrand guesses the network from the card prefix.
func CardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "507803"), strings.HasPrefix(digits, "507808"):
		return "meeza"
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "amex"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(digits, "2"):
		return "mastercard"
	case strings.HasPrefix(digits, "6"):
		return "discover"
	}
	return "unknown"
}

// Mask renders a card as "•••• 4242".
func Mask(last4 string) string {
	if last4 == "" {
		return ""
	}
	return "•••• " + last4
}
