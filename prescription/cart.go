package prescription

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/giygas/prescription-builder/catalog/entities"
)

// Item fields editable with SetField
const (
	FieldTimeSchedule = "time_schedule"
	FieldMealTime     = "meal_time"
)

// Cart is the ordered list of prescribed items. Items are addressed by
// position; removing one shifts the later items down. A Cart is owned by a
// single goroutine.
type Cart struct {
	items []entities.PrescriptionItem
}

// NewCart creates an empty cart
func NewCart() *Cart {
	return &Cart{}
}

// Add appends option with the default dosing and returns its position.
// Identical options are kept as separate lines.
func (c *Cart) Add(option entities.MedicineOption) int {
	c.items = append(c.items, entities.NewPrescriptionItem(option))
	return len(c.items) - 1
}

// Remove deletes the item at pos.
func (c *Cart) Remove(pos int) error {
	if err := c.check(pos); err != nil {
		return err
	}
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	return nil
}

// SetQuantity parses raw as an integer. Anything unparsable or below 1 becomes 1.
func (c *Cart) SetQuantity(pos int, raw string) error {
	if err := c.check(pos); err != nil {
		return err
	}
	c.items[pos].Quantity = ParseQuantity(raw)
	return nil
}

// SetField assigns time_schedule or meal_time. Values outside the usual
// choices are kept as free text.
func (c *Cart) SetField(pos int, field, value string) error {
	if err := c.check(pos); err != nil {
		return err
	}
	switch field {
	case FieldTimeSchedule:
		c.items[pos].TimeSchedule = value
	case FieldMealTime:
		c.items[pos].MealTime = value
	default:
		return fmt.Errorf("%q: %w", field, ErrUnknownField)
	}
	return nil
}

// Total is the unrounded sum of price times quantity, recomputed on every call.
func (c *Cart) Total() float64 {
	return sumItems(c.items)
}

// FormatTotal is Total rounded to two decimals.
func (c *Cart) FormatTotal() string {
	return FormatMoney(c.Total())
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// Len returns the number of items
func (c *Cart) Len() int { return len(c.items) }

// Items returns a copy of the items in display order.
func (c *Cart) Items() []entities.PrescriptionItem {
	out := make([]entities.PrescriptionItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) check(pos int) error {
	if pos < 0 || pos >= len(c.items) {
		return fmt.Errorf("position %d of %d: %w", pos, len(c.items), ErrIndexOutOfRange)
	}
	return nil
}

// ParseQuantity is the permissive quantity parser used by SetQuantity.
func ParseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return entities.DefaultQuantity
	}
	return n
}

// FormatMoney rounds to two decimals for display.
func FormatMoney(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', 2, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sumItems(items []entities.PrescriptionItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}
