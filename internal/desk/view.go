package desk

import (
	"fmt"
	"sync"

	"bitbucket.org/crgw/rental-desk/internal/booking"
	"bitbucket.org/crgw/rental-desk/internal/controller"
	"bitbucket.org/crgw/rental-desk/internal/outcome"
	"bitbucket.org/crgw/rental-desk/internal/schema"
)

type Notice struct {
	Severity schema.Severity `json:"severity"`
	Message  string          `json:"message"`
}

type Navigation struct {
	Target schema.Target `json:"target"`
}

// sink is the presentation side of one session: it keeps what was shown and streams it.
type sink struct {
	hub *Hub

	mutex      sync.Mutex
	notices    []Notice
	navigation *schema.Target
}

func newSink(hub *Hub) *sink {
	return &sink{hub: hub}
}

func (s *sink) Notify(severity schema.Severity, message string) {
	notice := Notice{Severity: severity, Message: message}

	s.mutex.Lock()
	s.notices = append(s.notices, notice)
	s.mutex.Unlock()

	s.hub.Broadcast(MessageNotice, notice)
}

func (s *sink) Navigate(target schema.Target) {
	s.mutex.Lock()
	s.navigation = &target
	s.mutex.Unlock()

	s.hub.Broadcast(MessageNavigation, Navigation{Target: target})
}

func (s *sink) snapshot() ([]Notice, *schema.Target) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	notices := make([]Notice, len(s.notices))
	copy(notices, s.notices)

	if s.navigation == nil {
		return notices, nil
	}
	target := *s.navigation
	return notices, &target
}

type VehicleView struct {
	schema.Vehicle
	Label string `json:"label"`
}

type DraftView struct {
	VehicleId       string   `json:"vehicleId"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	PickupLocation  string   `json:"pickupLocation"`
	DropoffLocation string   `json:"dropoffLocation"`
	TotalPrice      *float64 `json:"totalPrice"`
}

type SessionView struct {
	Id           string          `json:"id"`
	Authorized   bool            `json:"authorized"`
	CatalogSize  int             `json:"catalogSize"`
	Query        string          `json:"query"`
	PickerOpen   bool            `json:"pickerOpen"`
	Vehicles     []VehicleView   `json:"vehicles"`
	Draft        DraftView       `json:"draft"`
	Submitting   bool            `json:"submitting"`
	Booking      *schema.Booking `json:"booking"`
	Notices      []Notice        `json:"notices"`
	Navigation   *schema.Target  `json:"navigation"`
	RedirectSoon bool            `json:"redirectSoon"`
}

// OutcomeView is the answer to a submit.
type OutcomeView struct {
	Kind    string          `json:"kind"`
	Message string          `json:"message,omitempty"`
	Missing []string        `json:"missing,omitempty"`
	Target  schema.Target   `json:"target,omitempty"`
	Booking *schema.Booking `json:"booking,omitempty"`
}

type SubmitResponse struct {
	Outcome OutcomeView `json:"outcome"`
	View    SessionView `json:"view"`
}

func vehicleLabel(vehicle schema.Vehicle) string {
	return fmt.Sprintf("%s - $%s/day", vehicle.DisplayName(), vehicle.PriceLabel())
}

func renderDraft(draft booking.Snapshot) DraftView {
	return DraftView{
		VehicleId:       draft.VehicleId,
		StartDate:       draft.Value(booking.FieldStartDate),
		EndDate:         draft.Value(booking.FieldEndDate),
		PickupLocation:  draft.PickupLocation,
		DropoffLocation: draft.DropoffLocation,
		TotalPrice:      draft.TotalPrice,
	}
}

func renderView(id string, state controller.State, s *sink) SessionView {
	vehicles := make([]VehicleView, 0, len(state.Visible))
	for _, vehicle := range state.Visible {
		vehicles = append(vehicles, VehicleView{Vehicle: vehicle, Label: vehicleLabel(vehicle)})
	}

	notices, navigation := s.snapshot()

	return SessionView{
		Id:           id,
		Authorized:   state.Authorized,
		CatalogSize:  state.CatalogSize,
		Query:        state.Query,
		PickerOpen:   state.PickerOpen,
		Vehicles:     vehicles,
		Draft:        renderDraft(state.Draft),
		Submitting:   state.Submitting,
		Booking:      state.LastBooking,
		Notices:      notices,
		Navigation:   navigation,
		RedirectSoon: state.RedirectSoon,
	}
}

func renderOutcome(result outcome.Outcome) OutcomeView {
	view := OutcomeView{Kind: result.Kind()}

	switch o := result.(type) {
	case outcome.Success:
		created := o.Booking
		view.Booking = &created
		view.Target = o.Target
		view.Message = outcome.SuccessMessage
	case outcome.ValidationFailed:
		view.Missing = o.Missing
		view.Message = outcome.ValidationMessage
	case outcome.ApplicationError:
		view.Message = o.Message
	case outcome.AuthRejected:
		view.Target = schema.TargetLogin
		if o.Origin != outcome.OriginBooking {
			view.Target = schema.TargetSignup
		}
	case outcome.Unauthenticated:
		view.Target = schema.TargetSignup
		view.Message = outcome.AuthFailedMessage
	case outcome.TransportError:
		view.Target = schema.TargetSignup
		view.Message = outcome.AuthFailedMessage
	}

	return view
}
