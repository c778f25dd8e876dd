package models

import "time"

type Clinic struct {
	ClinicID         string    `json:"clinic_id" bson:"clinic_id"`
	DoctorID         string    `json:"doctor_id" bson:"doctor_id"`
	ClinicName       string    `json:"clinicname" bson:"clinicname"`
	Email            string    `json:"email" bson:"email"`
	Address          string    `json:"clinic_address" bson:"clinic_address"`
	PrimaryContact   string    `json:"primary_contact" bson:"primary_contact"`
	SecondaryContact string    `json:"secondary_contact,omitempty" bson:"secondary_contact,omitempty"`
	ServicesOffered  []string  `json:"services_offered,omitempty" bson:"services_offered,omitempty"`
	VisitSchedule    string    `json:"visit_schedule,omitempty" bson:"visit_schedule,omitempty"`
	ConsultationFees float64   `json:"doctor_consultation_fees" bson:"doctor_consultation_fees"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// DoctorClinicLink ties a doctor to a clinic through a QR code. The composite
// LinkID embeds both the clinic and the doctor counter values.
type DoctorClinicLink struct {
	LinkID         string    `json:"link_id" bson:"link_id"`
	ClinicID       string    `json:"clinic_id" bson:"clinic_id"`
	DoctorID       string    `json:"doctor_id" bson:"doctor_id"`
	FirstName      string    `json:"first_name" bson:"first_name"`
	LastName       string    `json:"last_name" bson:"last_name"`
	Qualifications string    `json:"qualifications,omitempty" bson:"qualifications,omitempty"`
	ClinicName     string    `json:"clinic_name" bson:"clinic_name"`
	ClinicAddress  string    `json:"clinic_address,omitempty" bson:"clinic_address,omitempty"`
	ClinicContact  string    `json:"clinic_contact,omitempty" bson:"clinic_contact,omitempty"`
	VisitDays      []string  `json:"visit_days,omitempty" bson:"visit_days,omitempty"`
	Fees           float64   `json:"fees" bson:"fees"`
	QRFilename     string    `json:"qr_filename" bson:"qr_filename"`
	QRObjectURL    string    `json:"qr_url,omitempty" bson:"qr_url,omitempty"`
	SeededBy       string    `json:"seeded_by,omitempty" bson:"seeded_by,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

func (l *DoctorClinicLink) DoctorName() string {
	d := Doctor{FirstName: l.FirstName, LastName: l.LastName}
	return d.FullName()
}
