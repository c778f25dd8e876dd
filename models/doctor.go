package models

import (
	"strings"
	"time"
)

// EntityKind names the kinds of records that receive generated identifiers.
type EntityKind string

const (
	KindDoctor     EntityKind = "doctor"
	KindClinic     EntityKind = "clinic"
	KindDoctorLink EntityKind = "doctor-clinic-link"
	KindPatient    EntityKind = "patient"
)

func (k EntityKind) Valid() bool {
	switch k {
	case KindDoctor, KindClinic, KindDoctorLink, KindPatient:
		return true
	}
	return false
}

// Identifier is an opaque generated id tagged with the kind it was issued for.
type Identifier struct {
	Kind  EntityKind `json:"kind"`
	Value string     `json:"value"`
}

func (i Identifier) String() string { return i.Value }

type Doctor struct {
	DoctorID     string    `json:"doctor_id" bson:"doctor_id"`
	FirstName    string    `json:"firstname" bson:"firstname"`
	LastName     string    `json:"lastname" bson:"lastname"`
	Email        string    `json:"email" bson:"email"`
	License      string    `json:"license" bson:"license"`
	LicenseKey   string    `json:"license_key" bson:"license_key"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Verified     bool      `json:"verified" bson:"verified"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// FullName joins the name parts the way they are printed on QR payloads and
// booking ledgers.
func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Sanitized returns a copy without the password digest.
func (d *Doctor) Sanitized() *Doctor {
	out := *d
	out.PasswordHash = ""
	return &out
}

// RegistrationInput is the raw field map a registration form submits.
type RegistrationInput map[string]string

// Get returns the trimmed value of the first key that is set and non-blank.
func (in RegistrationInput) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(in[k]); v != "" {
			return v
		}
	}
	return ""
}
