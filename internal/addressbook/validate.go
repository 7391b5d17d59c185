package addressbook

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/validation"
)

// FieldError is a rejected address field with the message shown to the user.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

var fieldMessages = map[string]map[string]string{
	"name":    {"required": "Please enter a name for this address"},
	"phone":   {"required": "Please enter a phone number", "phone": "Phone number must be exactly 10 digits"},
	"address": {"required": "Please enter the full address"},
	"city":    {"required": "Please enter the city"},
	"state":   {"required": "Please enter the state"},
	"pincode": {"required": "Please enter the pincode", "pincode": "Pincode must be exactly 6 digits"},
}

var validate = validation.New()

// Normalize trims every field and folds the type onto the canonical labels.
func Normalize(a models.Address) models.Address {
	a.ID = strings.TrimSpace(a.ID)
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)
	a.Type = models.ParseAddressType(string(a.Type))
	return a
}

// Validate checks a in field order name, phone, address, city, state,
// pincode and returns a *FieldError for the first failure.
func Validate(a models.Address) error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg, ok := fieldMessages[fe.Field()][fe.Tag()]
	if !ok {
		msg = "Please check the " + fe.Field() + " field"
	}
	return &FieldError{Field: fe.Field(), Message: msg}
}
