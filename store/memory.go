package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/models"
)

// MemoryStore mirrors the unique indexes of the Mongo store in process
// memory. Used in tests and with STORAGE_BACKEND=memory.
type MemoryStore struct {
	mu       sync.RWMutex
	doctors  []models.Doctor
	clinics  []models.Clinic
	links    []models.DoctorClinicLink
	bookings []models.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertDoctor(ctx context.Context, d *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// email wins over license when both collide
	for _, existing := range s.doctors {
		if existing.Email == d.Email {
			return apperr.DuplicateEmail()
		}
	}
	for _, existing := range s.doctors {
		if existing.LicenseKey == d.LicenseKey {
			return apperr.DuplicateLicense()
		}
		if existing.DoctorID == d.DoctorID {
			return fmt.Errorf("doctor id %s already exists", d.DoctorID)
		}
	}
	s.doctors = append(s.doctors, *d)
	return nil
}

func (s *MemoryStore) InsertClinic(ctx context.Context, c *models.Clinic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.clinics {
		switch {
		case existing.Email == c.Email:
			return apperr.DuplicateEmail()
		case existing.ClinicID == c.ClinicID:
			return fmt.Errorf("clinic id %s already exists", c.ClinicID)
		}
	}
	s.clinics = append(s.clinics, *c)
	return nil
}

func (s *MemoryStore) InsertLink(ctx context.Context, l *models.DoctorClinicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.links {
		if existing.LinkID == l.LinkID || existing.QRFilename == l.QRFilename {
			return fmt.Errorf("link %s already exists", l.LinkID)
		}
	}
	s.links = append(s.links, *l)
	return nil
}

func (s *MemoryStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *MemoryStore) FindDoctorByID(ctx context.Context, doctorID string) (*models.Doctor, error) {
	return s.findDoctor(func(d *models.Doctor) bool { return d.DoctorID == doctorID })
}

func (s *MemoryStore) FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	return s.findDoctor(func(d *models.Doctor) bool { return d.Email == email })
}

func (s *MemoryStore) findDoctor(match func(*models.Doctor) bool) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.doctors {
		if match(&s.doctors[i]) {
			d := s.doctors[i]
			return &d, nil
		}
	}
	return nil, apperr.NotFound("doctor")
}

func (s *MemoryStore) FindClinicByDoctorID(ctx context.Context, doctorID string) (*models.Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.clinics {
		if s.clinics[i].DoctorID == doctorID {
			c := s.clinics[i]
			return &c, nil
		}
	}
	return nil, apperr.NotFound("clinic")
}

func (s *MemoryStore) FindLinkByQR(ctx context.Context, qrFilename string) (*models.DoctorClinicLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.links {
		if s.links[i].QRFilename == qrFilename {
			l := s.links[i]
			return &l, nil
		}
	}
	return nil, apperr.NotFound("qr code")
}

func (s *MemoryStore) ListLinksByDoctor(ctx context.Context, doctorID string) ([]models.DoctorClinicLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DoctorClinicLink
	for _, l := range s.links {
		if l.SeededBy == doctorID || l.DoctorID == doctorID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListBookings(ctx context.Context, clinicID, bookingDate string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Booking
	for _, b := range s.bookings {
		if b.ClinicID == clinicID && (bookingDate == "" || b.BookingDate == bookingDate) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, kind models.EntityKind, field, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case models.KindDoctor:
		for _, d := range s.doctors {
			if doctorField(&d, field) == value {
				return true, nil
			}
		}
	case models.KindClinic:
		for _, c := range s.clinics {
			if clinicField(&c, field) == value {
				return true, nil
			}
		}
	default:
		return false, apperr.InvalidSeed("kind", fmt.Sprintf("no uniqueness lookups for %s", kind))
	}
	return false, nil
}

func doctorField(d *models.Doctor, field string) string {
	switch field {
	case FieldEmail:
		return d.Email
	case FieldLicenseKey:
		return d.LicenseKey
	case FieldDoctorID:
		return d.DoctorID
	}
	return "\x00"
}

func clinicField(c *models.Clinic, field string) string {
	switch field {
	case FieldEmail:
		return c.Email
	case FieldClinicID:
		return c.ClinicID
	case FieldDoctorID:
		return c.DoctorID
	}
	return "\x00"
}
