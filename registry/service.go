package registry

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/metrics"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/utils"
)

// Store is the persistence the registration service needs.
type Store interface {
	Reader
	InsertDoctor(ctx context.Context, d *models.Doctor) error
	InsertClinic(ctx context.Context, c *models.Clinic) error
	FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error)
}

type Service struct {
	registry     *Registry
	store        Store
	ids          *utils.IDGenerator
	hasher       PasswordHasher
	logger       *zap.Logger
	metrics      *metrics.Metrics
	validate     *validatorFacade
	doctorScheme utils.Scheme
	clinicScheme utils.Scheme
	now          func() time.Time
}

type ServiceConfig struct {
	DoctorScheme utils.Scheme
	ClinicScheme utils.Scheme
}

func NewService(st Store, ids *utils.IDGenerator, hasher PasswordHasher, logger *zap.Logger, m *metrics.Metrics, cfg ServiceConfig) *Service {
	if cfg.DoctorScheme == "" {
		cfg.DoctorScheme = utils.SchemeCounter
	}
	if cfg.ClinicScheme == "" {
		cfg.ClinicScheme = utils.SchemeTimestamp
	}
	return &Service{
		registry:     NewRegistry(st),
		store:        st,
		ids:          ids,
		hasher:       hasher,
		logger:       logger,
		metrics:      m,
		validate:     &validatorFacade{v: newValidator()},
		doctorScheme: cfg.DoctorScheme,
		clinicScheme: cfg.ClinicScheme,
		now:          time.Now,
	}
}

func (s *Service) Registry() *Registry { return s.registry }

// Register validates raw form fields, checks email then license uniqueness,
// issues a doctor id, hashes the password and writes exactly one record.
// The returned doctor never carries the password digest.
func (s *Service) Register(ctx context.Context, raw map[string]string) (*models.Doctor, error) {
	start := time.Now()
	defer s.metrics.ObserveRegister(start)

	doctor, err := s.register(ctx, raw)
	outcome := "success"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.Registration(string(models.KindDoctor), outcome)
	return doctor, err
}

func (s *Service) register(ctx context.Context, raw map[string]string) (*models.Doctor, error) {
	in := models.RegistrationInput(raw)
	form := doctorForm{
		FirstName: in.Get("firstname"),
		LastName:  in.Get("lastname"),
		Email:     in.Get("email"),
		License:   in.Get("license", "license_number"),
		Password:  raw["password"],
	}
	if form.FirstName == "" && form.LastName == "" {
		form.FirstName, form.LastName = splitFullName(in.Get("fullname"))
	}
	if err := s.validate.Struct(&form); err != nil {
		return nil, err
	}

	if err := s.registry.Check(ctx, models.KindDoctor, FieldEmail, form.Email); err != nil {
		return nil, err
	}
	if err := s.registry.Check(ctx, models.KindDoctor, FieldLicense, form.License); err != nil {
		return nil, err
	}

	id, err := s.ids.Generate(ctx, models.KindDoctor, s.doctorScheme, map[string]string{
		utils.SeedLastName: form.LastName,
	})
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(form.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}

	doctor := &models.Doctor{
		DoctorID:     id.Value,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        NormalizeEmail(form.Email),
		License:      form.License,
		LicenseKey:   NormalizeLicense(form.License),
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertDoctor(ctx, doctor); err != nil {
		s.logger.Warn("Doctor insert rejected",
			zap.String("doctor_id", doctor.DoctorID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Doctor registered",
		zap.String("doctor_id", doctor.DoctorID),
		zap.String("email", doctor.Email))
	return doctor.Sanitized(), nil
}

// RegisterClinic registers the clinic owned by doctorID.
func (s *Service) RegisterClinic(ctx context.Context, doctorID string, raw map[string]string) (*models.Clinic, error) {
	clinic, err := s.registerClinic(ctx, doctorID, raw)
	outcome := "success"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.Registration(string(models.KindClinic), outcome)
	return clinic, err
}

func (s *Service) registerClinic(ctx context.Context, doctorID string, raw map[string]string) (*models.Clinic, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, apperr.Validation("doctor_id", "doctor_id is required")
	}
	form := clinicForm{
		ClinicName: strings.TrimSpace(raw["clinic_name"]),
		Email:      strings.TrimSpace(raw["clinic_email"]),
		Contact:    strings.TrimSpace(raw["clinic_contact"]),
		AltContact: strings.TrimSpace(raw["clinic_alt_contact"]),
		Fees:       strings.TrimSpace(raw["clinic_fees"]),
	}
	if err := s.validate.Struct(&form); err != nil {
		return nil, err
	}
	if err := s.registry.Check(ctx, models.KindClinic, FieldEmail, form.Email); err != nil {
		return nil, err
	}

	id, err := s.ids.Generate(ctx, models.KindClinic, s.clinicScheme, map[string]string{
		utils.SeedClinicName: form.ClinicName,
	})
	if err != nil {
		return nil, err
	}
	fees, _ := ParseFees(form.Fees)

	clinic := &models.Clinic{
		ClinicID:         id.Value,
		DoctorID:         doctorID,
		ClinicName:       form.ClinicName,
		Email:            NormalizeEmail(form.Email),
		Address:          strings.TrimSpace(raw["clinic_address"]),
		PrimaryContact:   form.Contact,
		SecondaryContact: form.AltContact,
		ServicesOffered:  SplitList(raw["services_offered"]),
		VisitSchedule:    strings.TrimSpace(raw["visit_schedule"]),
		ConsultationFees: fees,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.InsertClinic(ctx, clinic); err != nil {
		return nil, err
	}

	s.logger.Info("Clinic registered",
		zap.String("clinic_id", clinic.ClinicID),
		zap.String("doctor_id", doctorID))
	return clinic, nil
}

// Authenticate checks a doctor's credentials. Unknown email and wrong
// password fail identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Doctor, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	doctor, err := s.store.FindDoctorByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, doctor.PasswordHash)
	if err != nil {
		s.logger.Error("Stored password digest unreadable",
			zap.String("doctor_id", doctor.DoctorID),
			zap.Error(err))
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if !ok {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return doctor.Sanitized(), nil
}

// splitFullName splits on the last space, the form single-field clients send.
func splitFullName(full string) (string, string) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return full, ""
	}
	return strings.TrimSpace(full[:i]), strings.TrimSpace(full[i+1:])
}
