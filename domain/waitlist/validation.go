package waitlist

import (
	"regexp"
	"strings"

	"github.com/akeren/mehfil-api/internal/models"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
	"github.com/go-playground/validator/v10"
)

const (
	MsgEmailAndUserTypeRequired = "Email and user type are required"
	MsgAllFieldsRequired        = "Email, phone number, and user type are required"
	MsgInvalidEmail             = "Invalid email format"
	MsgInvalidPhoneNumber       = "Invalid phone number format"
	MsgInvalidUserType          = "Invalid user type"
	MsgBusinessNameRequired     = "Business name is required for vendors"
	MsgEmailTaken               = "Email already registered"
	MsgPhoneNumberTaken         = "Phone number already registered"
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneNoisePattern = regexp.MustCompile(`[\s\-()]`)
	phonePattern      = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

	validate = validator.New()
)

// NormalizePhoneNumber strips whitespace, dashes and parentheses.
func NormalizePhoneNumber(raw string) string {
	return phoneNoisePattern.ReplaceAllString(raw, "")
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func IsValidPhoneNumber(normalized string) bool {
	return phonePattern.MatchString(normalized)
}

func isValidUserType(userType string) bool {
	return validate.Var(userType, "oneof="+models.UserTypeVendor+" "+models.UserTypeCouple) == nil
}

// validateRegistration applies the checks in order and returns the entry to
// persist. The first failing check decides the message.
func validateRegistration(req *RegisterRequest) (*models.WaitlistEntry, error) {
	if req == nil || req.Email == "" {
		return nil, apperrors.NewInvalidRequestError(MsgEmailAndUserTypeRequired, nil)
	}
	if req.PhoneNumber == "" || req.UserType == "" {
		return nil, apperrors.NewInvalidRequestError(MsgAllFieldsRequired, nil)
	}

	if !IsValidEmail(req.Email) {
		return nil, apperrors.NewInvalidRequestError(MsgInvalidEmail, nil)
	}

	phone := NormalizePhoneNumber(req.PhoneNumber)
	if !IsValidPhoneNumber(phone) {
		return nil, apperrors.NewInvalidRequestError(MsgInvalidPhoneNumber, nil)
	}

	if !isValidUserType(req.UserType) {
		return nil, apperrors.NewInvalidRequestError(MsgInvalidUserType, nil)
	}

	entry := &models.WaitlistEntry{
		Email:       req.Email,
		PhoneNumber: phone,
		UserType:    req.UserType,
		Status:      models.StatusActive,
	}

	if entry.IsVendor() {
		businessName := strings.TrimSpace(req.BusinessName)
		if businessName == "" {
			return nil, apperrors.NewInvalidRequestError(MsgBusinessNameRequired, nil)
		}
		entry.BusinessName = &businessName
	}

	return entry, nil
}
