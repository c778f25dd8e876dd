// Package qr renders the check-in QR codes patients scan to book a visit and
// stores the images in object storage.
package qr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/skip2/go-qrcode"

	"github.com/Protyush1995/Docto-friend/models"
)

const DefaultSize = 512

// payload is what a scanned code decodes to.
type payload struct {
	DoctorID             string `json:"doctor_id"`
	DoctorFirstName      string `json:"doctor_first_name"`
	DoctorLastName       string `json:"doctor_last_name"`
	DoctorQualifications string `json:"doctor_qualifications"`
	ClinicID             string `json:"clinic_id"`
	ClinicName           string `json:"clinic_name"`
	ClinicFees           string `json:"clinic_fees"`
	ClinicAddress        string `json:"clinic_address"`
	ClinicContact        string `json:"clinic_contact"`
	DoctorVisitDays      string `json:"doctor_visit_days"`
}

// Payload encodes the doctor and clinic details carried by a link's QR code.
func Payload(l *models.DoctorClinicLink) ([]byte, error) {
	fees := ""
	if l.Fees > 0 {
		fees = strconv.FormatFloat(l.Fees, 'f', -1, 64)
	}
	return json.Marshal(payload{
		DoctorID:             l.DoctorID,
		DoctorFirstName:      l.FirstName,
		DoctorLastName:       l.LastName,
		DoctorQualifications: l.Qualifications,
		ClinicID:             l.ClinicID,
		ClinicName:           l.ClinicName,
		ClinicFees:           fees,
		ClinicAddress:        l.ClinicAddress,
		ClinicContact:        l.ClinicContact,
		DoctorVisitDays:      strings.Join(l.VisitDays, ", "),
	})
}

// Filename returns doctor_qr_<yyyyMMddHHmmssffffff>_<8 hex>.png.
func Filename(now time.Time, id uuid.UUID) string {
	now = now.UTC()
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("doctor_qr_%s%06d_%s.png", now.Format("20060102150405"), now.Nanosecond()/1000, hex[:8])
}

// ValidFilename guards object lookups against path tricks.
func ValidFilename(name string) bool {
	return strings.HasPrefix(name, "doctor_qr_") &&
		strings.HasSuffix(name, ".png") &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.Contains(name, "..")
}

type Renderer struct {
	size uint
}

func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: uint(size)}
}

// Render encodes data at medium error correction and scales it to the
// configured square size with nearest-neighbour sampling so module edges stay
// sharp for scanners.
func (r *Renderer) Render(data []byte) ([]byte, error) {
	code, err := qrcode.New(string(data), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	// negative size: fixed pixels per module
	img := code.Image(-8)
	scaled := resize.Resize(r.size, r.size, img, resize.NearestNeighbor)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, scaled); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
