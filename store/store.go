// Package store persists doctors, clinics, doctor/clinic links and bookings.
// Uniqueness of emails, licenses and ids is enforced by the store itself so
// a racing pre-check cannot admit duplicates.
package store

import (
	"context"

	"github.com/Protyush1995/Docto-friend/models"
)

// Stored field names used by Exists lookups.
const (
	FieldEmail      = "email"
	FieldLicenseKey = "license_key"
	FieldDoctorID   = "doctor_id"
	FieldClinicID   = "clinic_id"
)

type RecordStore interface {
	InsertDoctor(ctx context.Context, d *models.Doctor) error
	InsertClinic(ctx context.Context, c *models.Clinic) error
	InsertLink(ctx context.Context, l *models.DoctorClinicLink) error
	InsertBooking(ctx context.Context, b *models.Booking) error

	FindDoctorByID(ctx context.Context, doctorID string) (*models.Doctor, error)
	FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
	FindClinicByDoctorID(ctx context.Context, doctorID string) (*models.Clinic, error)
	FindLinkByQR(ctx context.Context, qrFilename string) (*models.DoctorClinicLink, error)
	ListLinksByDoctor(ctx context.Context, doctorID string) ([]models.DoctorClinicLink, error)
	ListBookings(ctx context.Context, clinicID, bookingDate string) ([]models.Booking, error)

	// Exists reports whether any record of kind has field equal to value.
	Exists(ctx context.Context, kind models.EntityKind, field, value string) (bool, error)
}
