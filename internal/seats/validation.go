package seats

import "github.com/go-playground/validator/v10"

// RegisterValidators adds the "seatkey" tag, accepting "2-3" and "C-4".
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("seatkey", func(fl validator.FieldLevel) bool {
		_, err := ParseSeatKey(fl.Field().String())
		return err == nil
	})
}
