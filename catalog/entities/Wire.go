package entities

// OptionsRequest is the body of POST /get_options.
type OptionsRequest struct {
	Generic  string `json:"generic"`
	Strength string `json:"strength,omitempty"`
}

// OptionsResponse lists the strengths and dosage forms known for a generic.
type OptionsResponse struct {
	Strengths []string `json:"strengths"`
	Types     []string `json:"types"`
}

// DetailsResponse lists the brands matching an exact query.
type DetailsResponse struct {
	Options []MedicineOption `json:"options"`
}

// ExportRequest is the body of POST /generate_pdf.
type ExportRequest struct {
	PatientName     string             `json:"patient_name"`
	Age             string             `json:"age"`
	Sex             string             `json:"sex"`
	PatientID       string             `json:"patient_id"`
	NextAppointment string             `json:"next_appointment"`
	Medicines       []PrescriptionItem `json:"medicines"`
	TotalCost       float64            `json:"total_cost"`
	DoctorName      string             `json:"doctor_name"`
	Specialization  string             `json:"specialization"`
	RegNo           string             `json:"reg_no"`
	Phone           string             `json:"phone"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
