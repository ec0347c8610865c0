package booking

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/crgw/rental-desk/internal/pricing"
	"github.com/oapi-codegen/runtime/types"
)

type Field string

const (
	FieldVehicleId       Field = "vehicleId"
	FieldStartDate       Field = "startDate"
	FieldEndDate         Field = "endDate"
	FieldPickupLocation  Field = "pickupLocation"
	FieldDropoffLocation Field = "dropoffLocation"
)

// RequiredFields must all be non-empty before a booking is sent.
var RequiredFields = []Field{
	FieldVehicleId,
	FieldStartDate,
	FieldEndDate,
	FieldPickupLocation,
	FieldDropoffLocation,
}

var (
	ErrUnknownField = errors.New("unknown draft field")
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
)

// Draft is the booking being assembled. The total price is derived from the dates on every
// change and cannot be set directly.
type Draft struct {
	engine          pricing.Engine
	vehicleId       string
	startDate       types.Date
	endDate         types.Date
	pickupLocation  string
	dropoffLocation string
	totalPrice      *float64
}

func NewDraft(engine pricing.Engine) *Draft {
	return &Draft{engine: engine}
}

// ParseDate reads a calendar date; the empty string is the unset date.
func ParseDate(value string) (types.Date, error) {
	if value == "" {
		return types.Date{}, nil
	}

	parsed, err := time.Parse(types.DateFormat, value)
	if err != nil {
		return types.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}

	return types.Date{Time: parsed}, nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(date types.Date) string {
	if date.Time.IsZero() {
		return ""
	}
	return date.Time.Format(types.DateFormat)
}

// Set applies one user input event.
func (d *Draft) Set(field Field, value string) error {
	switch field {
	case FieldVehicleId:
		d.vehicleId = value
	case FieldStartDate, FieldEndDate:
		date, err := ParseDate(value)
		if err != nil {
			return err
		}
		if field == FieldStartDate {
			d.SetStartDate(date)
		} else {
			d.SetEndDate(date)
		}
	case FieldPickupLocation:
		d.pickupLocation = value
	case FieldDropoffLocation:
		d.dropoffLocation = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	return nil
}

func (d *Draft) SetVehicle(id string) {
	d.vehicleId = id
}

func (d *Draft) SetStartDate(date types.Date) {
	d.startDate = date
	d.reprice()
}

func (d *Draft) SetEndDate(date types.Date) {
	d.endDate = date
	d.reprice()
}

func (d *Draft) reprice() {
	total, ok := d.engine.Quote(d.startDate, d.endDate)
	if !ok {
		d.totalPrice = nil
		return
	}
	d.totalPrice = &total
}

func (d *Draft) Snapshot() Snapshot {
	snapshot := Snapshot{
		VehicleId:       d.vehicleId,
		StartDate:       d.startDate,
		EndDate:         d.endDate,
		PickupLocation:  d.pickupLocation,
		DropoffLocation: d.dropoffLocation,
	}

	if d.totalPrice != nil {
		total := *d.totalPrice
		snapshot.TotalPrice = &total
	}

	return snapshot
}

// Snapshot is an immutable copy of a draft, handed to the submitter.
type Snapshot struct {
	VehicleId       string
	StartDate       types.Date
	EndDate         types.Date
	PickupLocation  string
	DropoffLocation string
	TotalPrice      *float64
}

func (s Snapshot) Value(field Field) string {
	switch field {
	case FieldVehicleId:
		return s.VehicleId
	case FieldStartDate:
		return FormatDate(s.StartDate)
	case FieldEndDate:
		return FormatDate(s.EndDate)
	case FieldPickupLocation:
		return s.PickupLocation
	case FieldDropoffLocation:
		return s.DropoffLocation
	}
	return ""
}

// Missing lists the empty required fields, in RequiredFields order.
func (s Snapshot) Missing() []string {
	missing := []string{}
	for _, field := range RequiredFields {
		if s.Value(field) == "" {
			missing = append(missing, string(field))
		}
	}
	return missing
}
