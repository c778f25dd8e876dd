package models

import "time"

// Booking is a patient visit request made through a clinic QR code.
type Booking struct {
	PatientID            string    `json:"patient_id" bson:"patient_id"`
	PatientName          string    `json:"patient_name" bson:"patient_name"`
	PatientMobile        string    `json:"patient_mobile" bson:"patient_mobile"`
	VisitDay             string    `json:"visit_day" bson:"visit_day"`
	ClinicID             string    `json:"clinic_id" bson:"clinic_id"`
	ClinicName           string    `json:"clinic_name" bson:"clinic_name"`
	ClinicAddress        string    `json:"clinic_address" bson:"clinic_address"`
	DoctorID             string    `json:"doctor_id" bson:"doctor_id"`
	DoctorName           string    `json:"doctor_name" bson:"doctor_name"`
	DoctorQualifications string    `json:"doctor_qualifications" bson:"doctor_qualifications"`
	QRFilename           string    `json:"qr_filename" bson:"qr_filename"`
	BookingDate          string    `json:"booking_date" bson:"booking_date"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
}
