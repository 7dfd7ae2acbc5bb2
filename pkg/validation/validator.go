package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// Custom validator instance
	validate = validator.New()

	// Stellar public keys are strkey-encoded ed25519: "G" + 55 base32 chars
	strkeyPattern = regexp.MustCompile(`^G[A-Z2-7]{55}$`)
	// Asset codes per Stellar: 1-12 alphanumeric characters
	assetPattern    = regexp.MustCompile(`^[A-Za-z0-9]{1,12}$`)
	protocolPattern = regexp.MustCompile(`^[a-zA-Z0-9 _.-]{1,64}$`)
)

// ValidationError represents a validation error with field and message
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

func init() {
	validate.RegisterValidation("strkey", validateStrkey)
	validate.RegisterValidation("asset", validateAsset)
	validate.RegisterValidation("protocol", validateProtocol)
	validate.RegisterValidation("apy", validateAPY)
	validate.RegisterValidation("risk", validateRisk)
	validate.RegisterValidation("priority", validatePriority)
}

// IsValidAddress reports whether s is a well-formed Stellar public key:
// 56 characters, "G" prefix, base32 alphabet.
func IsValidAddress(s string) bool {
	return strkeyPattern.MatchString(s)
}

func validateStrkey(fl validator.FieldLevel) bool {
	addr, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return IsValidAddress(addr)
}

func validateAsset(fl validator.FieldLevel) bool {
	code, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return assetPattern.MatchString(code)
}

func validateProtocol(fl validator.FieldLevel) bool {
	name, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return protocolPattern.MatchString(name)
}

// validateAPY bounds yields to a sane range; triple-digit APYs exist in DeFi
// but four-digit ones are a data error
func validateAPY(fl validator.FieldLevel) bool {
	apy, ok := fl.Field().Interface().(float64)
	if !ok {
		return false
	}
	return apy >= 0 && apy < 1000
}

func validateRisk(fl validator.FieldLevel) bool {
	risk, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch risk {
	case "Low", "Medium", "High":
		return true
	}
	return false
}

func validatePriority(fl validator.FieldLevel) bool {
	p, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch p {
	case "low", "medium", "high", "critical":
		return true
	}
	return false
}

// ValidateStruct validates a struct using tags
func ValidateStruct(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errors ValidationErrors
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		tag := err.Tag()
		value := err.Value()

		message := getErrorMessage(field, tag, value)
		errors = append(errors, ValidationError{
			Field:   field,
			Message: message,
			Value:   value,
		})
	}

	return errors
}

// getErrorMessage returns a user-friendly error message
func getErrorMessage(field, tag string, value interface{}) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "strkey":
		return fmt.Sprintf("%s must be a valid Stellar public key (56 characters starting with G)", field)
	case "asset":
		return fmt.Sprintf("%s must be a valid asset code (1-12 alphanumeric characters)", field)
	case "protocol":
		return fmt.Sprintf("%s must be a valid protocol name", field)
	case "apy":
		return fmt.Sprintf("%s must be a non-negative APY below 1000", field)
	case "risk":
		return fmt.Sprintf("%s must be one of Low, Medium, High", field)
	case "priority":
		return fmt.Sprintf("%s must be one of low, medium, high, critical", field)
	case "min":
		return fmt.Sprintf("%s must be at least %v", field, value)
	case "max":
		return fmt.Sprintf("%s must be at most %v", field, value)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}

// SanitizeString removes null bytes and control characters and trims whitespace
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 { // Keep tab, newline, carriage return
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
