package entities

// Dosing defaults applied to a freshly added item.
const (
	DefaultQuantity     = 1
	DefaultTimeSchedule = "1+1+1"
	DefaultMealTime     = "After Meal"
)

// Known dosing values. The cart accepts other strings too.
var (
	TimeSchedules = []string{"1+1+1", "1+0+0", "0+0+1"}
	MealTimes     = []string{"After Meal", "Before Meal"}
)

// PrescriptionItem is a MedicineOption placed in the cart with its dosing attributes.
type PrescriptionItem struct {
	MedicineOption
	Quantity     int    `json:"quantity"`
	TimeSchedule string `json:"time_schedule"`
	MealTime     string `json:"meal_time"`
}

// NewPrescriptionItem wraps an option with the default dosing attributes.
func NewPrescriptionItem(option MedicineOption) PrescriptionItem {
	return PrescriptionItem{
		MedicineOption: option,
		Quantity:       DefaultQuantity,
		TimeSchedule:   DefaultTimeSchedule,
		MealTime:       DefaultMealTime,
	}
}

// Subtotal is price times quantity, unrounded.
func (i PrescriptionItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// PatientInfo is attached to an order only when it is exported.
type PatientInfo struct {
	Name            string `json:"name"`
	Age             string `json:"age"`
	Sex             string `json:"sex"`
	PatientID       string `json:"patient_id"`
	NextAppointment string `json:"next_appointment"`
}

// Prescriber identifies the doctor printed on the document.
type Prescriber struct {
	DoctorName     string `json:"doctor_name" yaml:"doctor_name"`
	Specialization string `json:"specialization" yaml:"specialization"`
	RegNo          string `json:"reg_no" yaml:"reg_no"`
	Phone          string `json:"phone" yaml:"phone"`
}
