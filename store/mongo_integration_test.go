//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/models"
	"github.com/Protyush1995/Docto-friend/store"
	"github.com/Protyush1995/Docto-friend/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *store.MongoStore
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.mongo = containers.NewMongoContainer(s.T())
}

func (s *MongoStoreSuite) SetupTest() {
	s.store = store.NewMongoStore(s.mongo.FreshDatabase(), 5*time.Second, zap.NewNop())
	s.Require().NoError(s.store.EnsureIndexes(context.Background()))
}

func newDoctor(id, email, license string) *models.Doctor {
	return &models.Doctor{
		DoctorID:     id,
		FirstName:    "Ann",
		LastName:     "Lee",
		Email:        email,
		LicenseKey:   license,
		PasswordHash: "$argon2id$stub",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *MongoStoreSuite) TestDuplicateKeysAreClassified() {
	ctx := context.Background()
	s.Require().NoError(s.store.InsertDoctor(ctx, newDoctor("DOCID_LEE_1", "ann.lee@example.com", "MED-12345")))

	err := s.store.InsertDoctor(ctx, newDoctor("DOCID_LEE_2", "ann.lee@example.com", "MED-99999"))
	s.ErrorIs(err, apperr.ErrDuplicateEmail)

	err = s.store.InsertDoctor(ctx, newDoctor("DOCID_LEE_3", "other@example.com", "MED-12345"))
	s.ErrorIs(err, apperr.ErrDuplicateLicense)
}

// TestConcurrentRegistrationsSameEmail verifies that the unique index admits
// exactly one of many racing inserts.
func (s *MongoStoreSuite) TestConcurrentRegistrationsSameEmail() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := newDoctor("DOCID_LEE_"+string(rune('A'+i)), "race@example.com", "LIC-"+string(rune('A'+i))+"0000")
			err := s.store.InsertDoctor(ctx, d)
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.KindOf(err) == apperr.KindDuplicateEmail:
				dup.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), dup.Load())
}

func (s *MongoStoreSuite) TestRoundTripKeepsDigest() {
	ctx := context.Background()
	d := newDoctor("DOCID_LEE_1", "ann.lee@example.com", "MED-12345")
	s.Require().NoError(s.store.InsertDoctor(ctx, d))

	got, err := s.store.FindDoctorByEmail(ctx, "ann.lee@example.com")
	s.Require().NoError(err)
	s.Equal(d.PasswordHash, got.PasswordHash)
	s.Equal(d.DoctorID, got.DoctorID)

	exists, err := s.store.Exists(ctx, models.KindDoctor, store.FieldLicenseKey, "MED-12345")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *MongoStoreSuite) TestLinksAndBookings() {
	ctx := context.Background()
	link := &models.DoctorClinicLink{
		LinkID:     "DOCLID_SUNRISE_1_LEE_1",
		ClinicID:   "CLINID_SUNRISE_1",
		DoctorID:   "DOCID_LEE_1",
		ClinicName: "Sunrise",
		QRFilename: "doctor_qr_1_abcdef12.png",
		SeededBy:   "DOCID_LEE_1",
		CreatedAt:  time.Now().UTC(),
	}
	s.Require().NoError(s.store.InsertLink(ctx, link))

	got, err := s.store.FindLinkByQR(ctx, link.QRFilename)
	s.Require().NoError(err)
	s.Equal(link.LinkID, got.LinkID)

	links, err := s.store.ListLinksByDoctor(ctx, "DOCID_LEE_1")
	s.Require().NoError(err)
	s.Len(links, 1)

	s.Require().NoError(s.store.InsertBooking(ctx, &models.Booking{
		PatientID:   "P_1",
		ClinicID:    "CLINID_SUNRISE_1",
		BookingDate: "20240309",
		CreatedAt:   time.Now().UTC(),
	}))
	bookings, err := s.store.ListBookings(ctx, "CLINID_SUNRISE_1", "20240309")
	s.Require().NoError(err)
	s.Len(bookings, 1)
}
