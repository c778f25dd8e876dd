// Package booking runs the patient side of a clinic QR code: a mobile number
// is verified with a one-time password, then a visit is booked against the
// doctor/clinic link the code points at.
package booking

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/cache"
	"github.com/Protyush1995/Docto-friend/metrics"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/utils"
)

const (
	DefaultOTPTTL    = 5 * time.Minute
	MaxVerifyAttempt = 5
	minMobileDigits  = 10
	dateLayout       = "20060102"
	attemptsSuffix   = ":attempts"
)

var LedgerHeaders = []string{
	"patient_id",
	"patient_name",
	"patient_mobile",
	"visit_day",
	"clinic_id",
	"clinic_name",
	"clinic_address",
	"doctor_name",
	"doctor_qualifications",
	"created_at",
}

// StateStore holds per-session OTP state and the verify attempt counter.
// *cache.Cache satisfies it.
type StateStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Incr(ctx context.Context, key string, expiration time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

type Store interface {
	FindLinkByQR(ctx context.Context, qrFilename string) (*models.DoctorClinicLink, error)
	InsertBooking(ctx context.Context, b *models.Booking) error
	ListBookings(ctx context.Context, clinicID, bookingDate string) ([]models.Booking, error)
}

// OTPSender delivers a code to a mobile number.
type OTPSender interface {
	Send(ctx context.Context, mobile, otp string) error
}

// LogSender writes codes to the log instead of sending an SMS.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(ctx context.Context, mobile, otp string) error {
	s.Logger.Info("OTP issued", zap.String("mobile", maskMobile(mobile)))
	return nil
}

type state struct {
	OTP       string    `json:"otp,omitempty"`
	Mobile    string    `json:"mobile"`
	Verified  bool      `json:"verified"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	states    StateStore
	store     Store
	ids       *utils.IDGenerator
	sender    OTPSender
	logger    *zap.Logger
	metrics   *metrics.Metrics
	ttl       time.Duration
	exposeOTP bool
	random    io.Reader
	now       func() time.Time
}

type Config struct {
	TTL time.Duration
	// ExposeOTP returns the code in the SendOTP result. Development only.
	ExposeOTP bool
}

func NewService(states StateStore, st Store, ids *utils.IDGenerator, sender OTPSender, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultOTPTTL
	}
	return &Service{
		states:    states,
		store:     st,
		ids:       ids,
		sender:    sender,
		logger:    logger,
		metrics:   m,
		ttl:       cfg.TTL,
		exposeOTP: cfg.ExposeOTP,
		now:       time.Now,
	}
}

// SendOTP issues a fresh code for mobile, replacing any earlier state of the
// session. The code is returned only when the service exposes OTPs.
func (s *Service) SendOTP(ctx context.Context, session, mobile string) (string, error) {
	if session == "" {
		return "", apperr.Validation("session", "missing booking session")
	}
	mobile = strings.TrimSpace(mobile)
	if !validMobile(mobile) {
		return "", apperr.Validation("mobile", "invalid_mobile")
	}

	otp, err := utils.GenerateOTP(s.random)
	if err != nil {
		return "", err
	}
	st := state{
		OTP:       otp,
		Mobile:    mobile,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.states.Set(ctx, session, st, s.ttl); err != nil {
		return "", apperr.Unavailable("store otp", err)
	}
	if err := s.states.Delete(ctx, session+attemptsSuffix); err != nil {
		return "", apperr.Unavailable("reset otp attempts", err)
	}
	if err := s.sender.Send(ctx, mobile, otp); err != nil {
		return "", err
	}
	s.metrics.IncrementOTPSent()

	if s.exposeOTP {
		return otp, nil
	}
	return "", nil
}

// VerifyOTP checks the code in constant time. Every check first bumps the
// session's attempt counter in the state store, so concurrent guesses share
// one budget. Once MaxVerifyAttempt checks have failed the session state is
// dropped and a new code must be requested. SendOTP resets the counter.
func (s *Service) VerifyOTP(ctx context.Context, session, otp string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return apperr.Validation("otp", "missing_otp")
	}
	st, err := s.load(ctx, session)
	if err != nil {
		return err
	}
	if st.Verified {
		return nil
	}
	if st.OTP == "" {
		return apperr.OTPRequired("otp_not_sent")
	}
	remaining := st.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		s.drop(ctx, session)
		return apperr.OTPRequired("otp_expired")
	}

	attempt, err := s.states.Incr(ctx, session+attemptsSuffix, remaining)
	if err != nil {
		return apperr.Unavailable("count otp attempt", err)
	}
	if attempt > MaxVerifyAttempt {
		s.drop(ctx, session)
		return apperr.OTPRequired("too_many_attempts")
	}

	if subtle.ConstantTimeCompare([]byte(st.OTP), []byte(otp)) == 1 {
		st.OTP = ""
		st.Verified = true
		if err := s.save(ctx, session, st); err != nil {
			return err
		}
		if err := s.states.Delete(ctx, session+attemptsSuffix); err != nil {
			s.logger.Warn("Failed to clear otp attempts", zap.Error(err))
		}
		return nil
	}

	if attempt == MaxVerifyAttempt {
		s.drop(ctx, session)
		return apperr.OTPRequired("too_many_attempts")
	}
	return apperr.Unauthorized("invalid_otp")
}

// Submit books a visit for a verified session and clears the session state.
func (s *Service) Submit(ctx context.Context, session, qrFilename, patientName, visitDay string) (*models.Booking, error) {
	st, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if !st.Verified {
		return nil, apperr.OTPRequired("otp_not_verified")
	}

	qrFilename = strings.TrimSpace(qrFilename)
	patientName = strings.TrimSpace(patientName)
	visitDay = strings.TrimSpace(visitDay)
	if qrFilename == "" {
		return nil, apperr.Validation("qr", "missing_fields")
	}
	if patientName == "" {
		return nil, apperr.Validation("patient_name", "missing_fields")
	}

	link, err := s.store.FindLinkByQR(ctx, qrFilename)
	if err != nil {
		return nil, err
	}
	if visitDay != "" && len(link.VisitDays) > 0 && !containsFold(link.VisitDays, visitDay) {
		return nil, apperr.Validation("doctor_visit_day", "doctor does not visit on "+visitDay)
	}

	patientID, err := s.ids.Timestamp(models.KindPatient)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	b := &models.Booking{
		PatientID:            patientID.Value,
		PatientName:          patientName,
		PatientMobile:        st.Mobile,
		VisitDay:             visitDay,
		ClinicID:             link.ClinicID,
		ClinicName:           link.ClinicName,
		ClinicAddress:        link.ClinicAddress,
		DoctorID:             link.DoctorID,
		DoctorName:           link.DoctorName(),
		DoctorQualifications: link.Qualifications,
		QRFilename:           link.QRFilename,
		BookingDate:          now.Format(dateLayout),
		CreatedAt:            now,
	}
	if err := s.store.InsertBooking(ctx, b); err != nil {
		return nil, err
	}
	s.drop(ctx, session)
	s.metrics.IncrementBookings()

	s.logger.Info("Booking saved",
		zap.String("patient_id", b.PatientID),
		zap.String("clinic_id", b.ClinicID))
	return b, nil
}

// Ledger renders a clinic's bookings for date (yyyyMMdd, empty for all) as
// CSV, one row per booking.
func (s *Service) Ledger(ctx context.Context, clinicID, date string) (string, []byte, error) {
	clinicID = strings.TrimSpace(clinicID)
	if clinicID == "" {
		return "", nil, apperr.Validation("clinic_id", "clinic_id is required")
	}
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return "", nil, apperr.Validation("date", "date must be yyyyMMdd")
		}
	}

	bookings, err := s.store.ListBookings(ctx, clinicID, date)
	if err != nil {
		return "", nil, err
	}

	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	if err := w.Write(LedgerHeaders); err != nil {
		return "", nil, err
	}
	for _, b := range bookings {
		row := []string{
			b.PatientID,
			b.PatientName,
			b.PatientMobile,
			b.VisitDay,
			b.ClinicID,
			b.ClinicName,
			b.ClinicAddress,
			b.DoctorName,
			b.DoctorQualifications,
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}

	suffix := date
	if suffix == "" {
		suffix = "all"
	}
	return clinicID + "__" + suffix + ".csv", buf.Bytes(), nil
}

func (s *Service) load(ctx context.Context, session string) (*state, error) {
	if session == "" {
		return nil, apperr.OTPRequired("otp_not_sent")
	}
	var st state
	if err := s.states.Get(ctx, session, &st); err != nil {
		if cache.IsMiss(err) {
			return nil, apperr.OTPRequired("otp_not_sent")
		}
		return nil, apperr.Unavailable("load otp", err)
	}
	return &st, nil
}

// drop removes the session state. The attempt counter is left to expire so
// guesses already in flight still count against the locked session.
func (s *Service) drop(ctx context.Context, session string) {
	if err := s.states.Delete(ctx, session); err != nil {
		s.logger.Warn("Failed to clear booking session", zap.Error(err))
	}
}

// save keeps the original expiry so retries cannot extend a code's life.
func (s *Service) save(ctx context.Context, session string, st *state) error {
	remaining := st.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		s.drop(ctx, session)
		return apperr.OTPRequired("otp_expired")
	}
	if err := s.states.Set(ctx, session, st, remaining); err != nil {
		return apperr.Unavailable("store otp", err)
	}
	return nil
}

func validMobile(m string) bool {
	if len(m) < minMobileDigits {
		return false
	}
	for _, r := range m {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func maskMobile(m string) string {
	if len(m) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(m)-4) + m[len(m)-4:]
}
