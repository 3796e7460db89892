package validators

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

const MinCustomerNameLength = 3

// Local mobile numbers: 05 followed by eight digits.
var mobilePattern = regexp.MustCompile(`^05\d{8}$`)

func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func IsMobilePhone(phone string) bool {
	return mobilePattern.MatchString(NormalizePhone(phone))
}

func IsCustomerName(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) >= MinCustomerNameLength
}

// ValidateCustomer checks the fields required before a booking can be confirmed.
func ValidateCustomer(name, phone string) error {
	if !IsCustomerName(name) {
		return httperr.Validation("invalid_customer_name", "Name must have at least 3 characters.")
	}
	if !IsMobilePhone(phone) {
		return httperr.Validation("invalid_customer_phone", "Phone must be a mobile number like 05XXXXXXXX.")
	}
	return nil
}
