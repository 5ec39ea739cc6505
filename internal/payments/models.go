package payments

import "errors"

type PaymentMethod string

const (
	MethodCard      PaymentMethod = "card"
	MethodDebitCard PaymentMethod = "debit-card"
	MethodMeeza     PaymentMethod = "meeza"
	MethodStripe    PaymentMethod = "stripe"
	// pay at the venue; the ticket stays reserved
	MethodReserved PaymentMethod = "reserved"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
)

var (
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidExpiry     = errors.New("invalid or expired card")
	ErrInvalidCVC        = errors.New("invalid cvc")
	ErrMissingCardName   = errors.New("card holder name is required")
	ErrPaymentDeclined   = errors.New("payment declined")
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCard, MethodDebitCard, MethodMeeza, MethodStripe, MethodReserved:
		return true
	}
	return false
}

// RequiresCard reports whether the method charges a card up front.
func (m PaymentMethod) RequiresCard() bool {
	return m != MethodReserved
}

// CardInput is the payment form as submitted. It is never persisted.
type CardInput struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" binding:"required,oneof=card debit-card meeza stripe reserved"`
	CardName      string        `json:"cardName" binding:"required_unless=PaymentMethod reserved,max=100"`
	CardNumber    string        `json:"cardNumber" binding:"required_unless=PaymentMethod reserved,omitempty,cardnumber"`
	ExpiryDate    string        `json:"expiryDate" binding:"required_unless=PaymentMethod reserved,omitempty,cardexpiry"`
	CVC           string        `json:"cvc" binding:"required_unless=PaymentMethod reserved,omitempty,cvc"`
}

// PaymentDetails is what a ticket keeps about its payment.
type PaymentDetails struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" gorm:"type:varchar(20);not null"`
	CardName      string        `json:"cardName,omitempty" gorm:"type:varchar(100)"`
	CardBrand     string        `json:"cardBrand,omitempty" gorm:"type:varchar(20)"`
	CardLast4     string        `json:"cardLast4,omitempty" gorm:"type:varchar(4)"`
	PaymentToken  string        `json:"paymentToken,omitempty" gorm:"type:varchar(64)"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);not null;default:'pending'"`
}
