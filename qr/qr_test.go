package qr

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/models"
)

func sampleLink() *models.DoctorClinicLink {
	return &models.DoctorClinicLink{
		LinkID:         "DOCLID_SUNRISE_1_LEE_1",
		ClinicID:       "CLINID_SUNRISE_1",
		DoctorID:       "DOCID_LEE_1",
		FirstName:      "Ann",
		LastName:       "Lee",
		Qualifications: "MBBS, MD",
		ClinicName:     "Sunrise",
		ClinicAddress:  "12 Park Street",
		ClinicContact:  "9876543210",
		VisitDays:      []string{"Mon", "Wed"},
		Fees:           450.5,
	}
}

func TestPayloadFields(t *testing.T) {
	data, err := Payload(sampleLink())
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]string{
		"doctor_id":             "DOCID_LEE_1",
		"doctor_first_name":     "Ann",
		"doctor_last_name":      "Lee",
		"doctor_qualifications": "MBBS, MD",
		"clinic_id":             "CLINID_SUNRISE_1",
		"clinic_name":           "Sunrise",
		"clinic_fees":           "450.5",
		"clinic_address":        "12 Park Street",
		"clinic_contact":        "9876543210",
		"doctor_visit_days":     "Mon, Wed",
	}, got)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.UTC)
	id := uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000000")

	name := Filename(now, id)
	assert.Equal(t, "doctor_qr_20240309140507123456_a1b2c3d4.png", name)
	assert.True(t, ValidFilename(name))
}

func TestValidFilename(t *testing.T) {
	assert.False(t, ValidFilename("../etc/passwd"))
	assert.False(t, ValidFilename("doctor_qr_../x.png"))
	assert.False(t, ValidFilename("doctor_qr_a/b.png"))
	assert.False(t, ValidFilename("profile.png"))
}

func TestRenderProducesSizedPNG(t *testing.T) {
	data, err := Payload(sampleLink())
	require.NoError(t, err)

	out, err := NewRenderer(256).Render(data)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost:8080/")

	url, err := s.Put(ctx, "doctor_qr_1_abcd.png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/qr/doctor_qr_1_abcd.png", url)

	got, err := s.Get(ctx, "doctor_qr_1_abcd.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, s.Delete(ctx, "doctor_qr_1_abcd.png"))
	_, err = s.Get(ctx, "doctor_qr_1_abcd.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
