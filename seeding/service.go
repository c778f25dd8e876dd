// Package seeding ties a doctor to a clinic: it mints the composite
// identifiers, renders the clinic QR code and persists the link.
package seeding

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/qr"
	"github.com/Protyush1995/Docto-friend/registry"
	"github.com/Protyush1995/Docto-friend/utils"
)

const defaultClinicName = "Clinic"

type LinkStore interface {
	InsertLink(ctx context.Context, l *models.DoctorClinicLink) error
	FindLinkByQR(ctx context.Context, qrFilename string) (*models.DoctorClinicLink, error)
	ListLinksByDoctor(ctx context.Context, doctorID string) ([]models.DoctorClinicLink, error)
}

type Service struct {
	store    LinkStore
	ids      *utils.IDGenerator
	renderer *qr.Renderer
	objects  qr.ObjectStore
	logger   *zap.Logger
	now      func() time.Time
	newUUID  func() uuid.UUID
}

func NewService(st LinkStore, ids *utils.IDGenerator, renderer *qr.Renderer, objects qr.ObjectStore, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		ids:      ids,
		renderer: renderer,
		objects:  objects,
		logger:   logger,
		now:      time.Now,
		newUUID:  uuid.New,
	}
}

// Seed validates fields, then mints ids, renders and stores the QR image and
// persists the link. Nothing is generated or written for rejected input.
func (s *Service) Seed(ctx context.Context, seededBy string, fields map[string]string) (*models.DoctorClinicLink, error) {
	first := strings.TrimSpace(fields["doctor_first_name"])
	if first == "" {
		return nil, apperr.Validation("doctor_first_name", "doctor_first_name is required")
	}
	last := strings.TrimSpace(fields["doctor_last_name"])
	if last == "" {
		return nil, apperr.Validation("doctor_last_name", "doctor_last_name is required")
	}
	if utils.Normalize(last) == "" {
		return nil, apperr.Validation("doctor_last_name", "doctor_last_name must contain letters or digits")
	}
	clinicName := strings.TrimSpace(fields["clinic_name"])
	if clinicName == "" || utils.Normalize(clinicName) == "" {
		clinicName = defaultClinicName
	}
	fees, err := registry.ParseFees(fields["clinic_fees"])
	if err != nil {
		return nil, apperr.Validation("clinic_fees", "clinic_fees must be a valid non-negative number")
	}

	ids, err := s.ids.Link(ctx, clinicName, last)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	link := &models.DoctorClinicLink{
		LinkID:         ids.LinkID,
		ClinicID:       ids.ClinicID,
		DoctorID:       ids.DoctorID,
		FirstName:      first,
		LastName:       last,
		Qualifications: strings.TrimSpace(fields["doctor_qualifications"]),
		ClinicName:     clinicName,
		ClinicAddress:  strings.TrimSpace(fields["clinic_address"]),
		ClinicContact:  strings.TrimSpace(fields["clinic_contact"]),
		VisitDays:      registry.SplitList(fields["doctor_visit_days"]),
		Fees:           fees,
		QRFilename:     qr.Filename(now, s.newUUID()),
		SeededBy:       seededBy,
		CreatedAt:      now,
	}

	data, err := qr.Payload(link)
	if err != nil {
		return nil, err
	}
	img, err := s.renderer.Render(data)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.Put(ctx, link.QRFilename, img)
	if err != nil {
		return nil, err
	}
	link.QRObjectURL = url

	if err := s.store.InsertLink(ctx, link); err != nil {
		if delErr := s.objects.Delete(ctx, link.QRFilename); delErr != nil {
			s.logger.Warn("Failed to remove orphaned qr image",
				zap.String("filename", link.QRFilename),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("Doctor seeded",
		zap.String("link_id", link.LinkID),
		zap.String("qr_filename", link.QRFilename),
		zap.String("seeded_by", seededBy))
	return link, nil
}

func (s *Service) Lookup(ctx context.Context, qrFilename string) (*models.DoctorClinicLink, error) {
	qrFilename = strings.TrimSpace(qrFilename)
	if qrFilename == "" {
		return nil, apperr.Validation("qr", "Missing qr parameter")
	}
	return s.store.FindLinkByQR(ctx, qrFilename)
}

func (s *Service) Links(ctx context.Context, doctorID string) ([]models.DoctorClinicLink, error) {
	return s.store.ListLinksByDoctor(ctx, doctorID)
}

// Image returns the stored PNG for a QR filename.
func (s *Service) Image(ctx context.Context, qrFilename string) ([]byte, error) {
	if !qr.ValidFilename(qrFilename) {
		return nil, apperr.Validation("filename", "Invalid filename")
	}
	return s.objects.Get(ctx, qrFilename)
}
