package registry

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Protyush1995/Docto-friend/apperr"
)

var (
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	licensePattern = regexp.MustCompile(`^[A-Za-z0-9-]{5,20}$`)
)

const minPasswordLength = 8

// doctorForm is the validated shape of a doctor registration. Field order is
// the order errors are reported in.
type doctorForm struct {
	FirstName string `json:"firstname" validate:"required"`
	LastName  string `json:"lastname" validate:"required"`
	Email     string `json:"email" validate:"required,emailaddr"`
	License   string `json:"license" validate:"required,license"`
	Password  string `json:"password" validate:"required,password"`
}

type clinicForm struct {
	ClinicName string `json:"clinic_name" validate:"required"`
	Email      string `json:"clinic_email" validate:"required,emailaddr"`
	Contact    string `json:"clinic_contact" validate:"required,phone"`
	AltContact string `json:"clinic_alt_contact" validate:"omitempty,phone"`
	Fees       string `json:"clinic_fees" validate:"omitempty,fees"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("license", func(fl validator.FieldLevel) bool {
		return licensePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return validPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return len(digitsOnly(fl.Field().String())) >= 10
	})
	_ = v.RegisterValidation("fees", func(fl validator.FieldLevel) bool {
		_, err := ParseFees(fl.Field().String())
		return err == nil
	})
	return v
}

// validPassword requires at least eight characters with an ASCII letter and
// a digit.
func validPassword(p string) bool {
	if len([]rune(p)) < minPasswordLength {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		}
	}
	return letter && digit
}

// ParseFees accepts an empty string as zero.
func ParseFees(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid fees %q", raw)
	}
	return v, nil
}

// SplitList splits a comma separated list, trimming entries and dropping
// empty ones.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// firstValidationError converts the first failing field into a typed error.
func firstValidationError(err error) error {
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return apperr.Validation("", err.Error())
	}
	fe := ve[0]
	return apperr.Validation(fe.Field(), getValidationMessage(fe))
}

func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "emailaddr":
		return "Invalid email"
	case "license":
		return "Invalid license number (5-20 alphanumeric/dash chars)"
	case "password":
		return "Password must be at least 8 chars and include letters and numbers"
	case "phone":
		return fmt.Sprintf("%s must contain at least 10 digits", fe.Field())
	case "fees":
		return fmt.Sprintf("%s must be a non-negative number", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

type validatorFacade struct {
	v *validator.Validate
}

// Struct validates form and returns the first failure as a ValidationError.
func (f *validatorFacade) Struct(form interface{}) error {
	if err := f.v.Struct(form); err != nil {
		return firstValidationError(err)
	}
	return nil
}
