// Package registry validates and persists doctor and clinic registrations.
// Uniqueness of email and license is checked before any identifier is
// generated and enforced again by the store's unique indexes.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/store"
)

// Field is a uniqueness-constrained registration field.
type Field string

const (
	FieldEmail   Field = "email"
	FieldLicense Field = "license"
)

// Reader answers exact-match existence lookups.
type Reader interface {
	Exists(ctx context.Context, kind models.EntityKind, field, value string) (bool, error)
}

// Registry performs the uniqueness pre-check.
type Registry struct {
	reader Reader
}

func NewRegistry(reader Reader) *Registry {
	return &Registry{reader: reader}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeLicense(license string) string {
	return strings.ToUpper(strings.TrimSpace(license))
}

// Check returns DuplicateEmail or DuplicateLicense when a record of kind
// already holds value, nil otherwise.
func (r *Registry) Check(ctx context.Context, kind models.EntityKind, field Field, value string) error {
	var storedField string
	var duplicate func() *apperr.Error

	switch field {
	case FieldEmail:
		value = NormalizeEmail(value)
		storedField = store.FieldEmail
		duplicate = apperr.DuplicateEmail
	case FieldLicense:
		if kind != models.KindDoctor {
			return apperr.Validation(string(field), fmt.Sprintf("license uniqueness does not apply to %s", kind))
		}
		value = NormalizeLicense(value)
		storedField = store.FieldLicenseKey
		duplicate = apperr.DuplicateLicense
	default:
		return apperr.Validation(string(field), "field is not uniqueness-constrained")
	}

	if value == "" {
		return apperr.Validation(string(field), fmt.Sprintf("%s is required", field))
	}

	exists, err := r.reader.Exists(ctx, kind, storedField, value)
	if err != nil {
		return err
	}
	if exists {
		return duplicate()
	}
	return nil
}

// CheckUnique is the boolean form of Check for availability probes.
func (r *Registry) CheckUnique(ctx context.Context, kind models.EntityKind, field Field, value string) (bool, error) {
	err := r.Check(ctx, kind, field, value)
	switch apperr.KindOf(err) {
	case "":
		return err == nil, err
	case apperr.KindDuplicateEmail, apperr.KindDuplicateLicense:
		return false, nil
	default:
		return false, err
	}
}
