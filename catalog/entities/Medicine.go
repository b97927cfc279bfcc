package entities

// MedicineOption is one catalog row: a brand of a generic at a given strength and dosage form.
type MedicineOption struct {
	Generic      string  `json:"generic"`
	MedicineName string  `json:"medicine_name,omitempty"`
	Brand        string  `json:"brand"`
	Strength     string  `json:"strength"`
	Type         string  `json:"type"`
	Price        float64 `json:"price"`
}

// MedicineQuery is the in-progress cascade selection.
// Strength and Type only mean something once Generic is set.
type MedicineQuery struct {
	Generic  string `json:"generic"`
	Strength string `json:"strength,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Complete reports whether every cascade field is filled.
func (q MedicineQuery) Complete() bool {
	return q.Generic != "" && q.Strength != "" && q.Type != ""
}
