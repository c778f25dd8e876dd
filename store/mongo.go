package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/models"
)

const (
	DoctorsCollection  = "doctors"
	ClinicsCollection  = "clinics"
	LinksCollection    = "doctor_clinic_links"
	BookingsCollection = "bookings"
)

// Unique index names. Duplicate-key errors are classified by the index name
// the server reports.
const (
	idxDoctorEmail   = "doctors_email_unique"
	idxDoctorLicense = "doctors_license_key_unique"
	idxDoctorID      = "doctors_doctor_id_unique"
	idxClinicEmail   = "clinics_email_unique"
	idxClinicID      = "clinics_clinic_id_unique"
	idxLinkID        = "links_link_id_unique"
	idxLinkQR        = "links_qr_filename_unique"
)

type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration
	logger  *zap.Logger
}

func NewMongoStore(db *mongo.Database, timeout time.Duration, logger *zap.Logger) *MongoStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoStore{db: db, timeout: timeout, logger: logger}
}

func uniqueIndex(name string, keys ...string) mongo.IndexModel {
	doc := bson.D{}
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: 1})
	}
	return mongo.IndexModel{
		Keys:    doc,
		Options: options.Index().SetUnique(true).SetName(name),
	}
}

// EnsureIndexes creates the unique indexes every insert relies on plus the
// lookup indexes for bookings. Safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 4*s.timeout)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		DoctorsCollection: {
			uniqueIndex(idxDoctorEmail, "email"),
			uniqueIndex(idxDoctorLicense, "license_key"),
			uniqueIndex(idxDoctorID, "doctor_id"),
		},
		ClinicsCollection: {
			uniqueIndex(idxClinicEmail, "email"),
			uniqueIndex(idxClinicID, "clinic_id"),
			{Keys: bson.D{{Key: "doctor_id", Value: 1}}},
		},
		LinksCollection: {
			uniqueIndex(idxLinkID, "link_id"),
			uniqueIndex(idxLinkQR, "qr_filename"),
			{Keys: bson.D{{Key: "seeded_by", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		BookingsCollection: {
			{Keys: bson.D{{Key: "clinic_id", Value: 1}, {Key: "booking_date", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			s.logger.Error("Failed to create indexes",
				zap.String("collection", coll),
				zap.Error(err))
			return apperr.Unavailable("create indexes on "+coll, err)
		}
	}
	return nil
}

// classifyWriteError turns a duplicate-key error into the matching typed
// error and every other driver error into StoreUnavailable.
func (s *MongoStore) classifyWriteError(op string, err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		s.logger.Error("Mongo write failed", zap.String("op", op), zap.Error(err))
		return apperr.Unavailable(op, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, idxDoctorEmail), strings.Contains(msg, idxClinicEmail):
		return apperr.DuplicateEmail()
	case strings.Contains(msg, idxDoctorLicense):
		return apperr.DuplicateLicense()
	default:
		// id and qr collisions are generator failures, not user errors
		s.logger.Error("Unexpected duplicate key", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *MongoStore) insert(ctx context.Context, coll, op string, doc interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		return s.classifyWriteError(op, err)
	}
	return nil
}

func (s *MongoStore) InsertDoctor(ctx context.Context, d *models.Doctor) error {
	return s.insert(ctx, DoctorsCollection, "insert doctor", d)
}

func (s *MongoStore) InsertClinic(ctx context.Context, c *models.Clinic) error {
	return s.insert(ctx, ClinicsCollection, "insert clinic", c)
}

func (s *MongoStore) InsertLink(ctx context.Context, l *models.DoctorClinicLink) error {
	return s.insert(ctx, LinksCollection, "insert link", l)
}

func (s *MongoStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	return s.insert(ctx, BookingsCollection, "insert booking", b)
}

func (s *MongoStore) findOne(ctx context.Context, coll, what string, filter bson.M, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.Collection(coll).FindOne(ctx, filter).Decode(dest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound(what)
		}
		return apperr.Unavailable("find "+what, err)
	}
	return nil
}

func (s *MongoStore) FindDoctorByID(ctx context.Context, doctorID string) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.findOne(ctx, DoctorsCollection, "doctor", bson.M{"doctor_id": doctorID}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MongoStore) FindDoctorByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.findOne(ctx, DoctorsCollection, "doctor", bson.M{"email": email}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MongoStore) FindClinicByDoctorID(ctx context.Context, doctorID string) (*models.Clinic, error) {
	var c models.Clinic
	if err := s.findOne(ctx, ClinicsCollection, "clinic", bson.M{"doctor_id": doctorID}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) FindLinkByQR(ctx context.Context, qrFilename string) (*models.DoctorClinicLink, error) {
	var l models.DoctorClinicLink
	if err := s.findOne(ctx, LinksCollection, "qr code", bson.M{"qr_filename": qrFilename}, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MongoStore) ListLinksByDoctor(ctx context.Context, doctorID string) ([]models.DoctorClinicLink, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"seeded_by": doctorID},
		bson.M{"doctor_id": doctorID},
	}}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.db.Collection(LinksCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, apperr.Unavailable("list links", err)
	}
	var out []models.DoctorClinicLink
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperr.Unavailable("decode links", err)
	}
	return out, nil
}

func (s *MongoStore) ListBookings(ctx context.Context, clinicID, bookingDate string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{"clinic_id": clinicID}
	if bookingDate != "" {
		filter["booking_date"] = bookingDate
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.db.Collection(BookingsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, apperr.Unavailable("list bookings", err)
	}
	var out []models.Booking
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperr.Unavailable("decode bookings", err)
	}
	return out, nil
}

func (s *MongoStore) Exists(ctx context.Context, kind models.EntityKind, field, value string) (bool, error) {
	var coll string
	switch kind {
	case models.KindDoctor:
		coll = DoctorsCollection
	case models.KindClinic:
		coll = ClinicsCollection
	default:
		return false, apperr.InvalidSeed("kind", fmt.Sprintf("no uniqueness lookups for %s", kind))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{field: value}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Unavailable("exists "+field, err)
	}
	return count > 0, nil
}
