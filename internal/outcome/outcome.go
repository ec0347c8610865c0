package outcome

import "bitbucket.org/crgw/rental-desk/internal/schema"

// Origin names the operation an outcome came from; auth rejections navigate differently
// depending on it.
type Origin string

const (
	OriginMount   Origin = "mount"
	OriginCatalog Origin = "catalog"
	OriginBooking Origin = "booking"
)

// Outcome is a tagged result of the gate, the catalog load or a submit attempt.
type Outcome interface {
	Kind() string
}

// Unauthenticated means no usable credential was held; nothing was sent.
type Unauthenticated struct {
	Origin Origin
}

type Loaded struct {
	Vehicles []schema.Vehicle
}

type Success struct {
	BookingId string
	Booking   schema.Booking
	Target    schema.Target
}

// ValidationFailed lists the required draft fields that were empty; nothing was sent.
type ValidationFailed struct {
	Missing []string
}

// AuthRejected means the service refused the credential, which has already been cleared.
type AuthRejected struct {
	Origin Origin
}

type ApplicationError struct {
	Origin  Origin
	Message string
}

// TransportError means the call produced no interpretable response.
type TransportError struct {
	Origin Origin
	Err    error
}

func (Unauthenticated) Kind() string  { return "unauthenticated" }
func (Loaded) Kind() string           { return "loaded" }
func (Success) Kind() string          { return "success" }
func (ValidationFailed) Kind() string { return "validationFailed" }
func (AuthRejected) Kind() string     { return "authRejected" }
func (ApplicationError) Kind() string { return "applicationError" }
func (TransportError) Kind() string   { return "transportError" }
