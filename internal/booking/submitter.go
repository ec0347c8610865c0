package booking

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/crgw/rental-desk/internal/outcome"
	"bitbucket.org/crgw/rental-desk/internal/schema"
	"bitbucket.org/crgw/rental-desk/internal/session"
	"bitbucket.org/crgw/rental-desk/internal/tools/graphql"
	"bitbucket.org/crgw/rental-desk/internal/tools/locking"
	"github.com/rs/zerolog"
)

const (
	FallbackErrorMessage = "Failed to create booking"
	MissingResultMessage = "Failed to create booking. Please try again."
)

var ErrSubmissionInProgress = errors.New("submission already in progress")

const createBookingMutation = `mutation CreateBooking(
  $carId: ID!
  $startDate: String!
  $endDate: String!
  $pickupLocation: String!
  $dropoffLocation: String!
) {
  createBooking(
    carId: $carId
    startDate: $startDate
    endDate: $endDate
    pickupLocation: $pickupLocation
    dropoffLocation: $dropoffLocation
  ) {
    id
    status
    totalPrice
    car {
      id
      make
      model
      price
    }
    user {
      id
      fullName
      email
    }
    startDate
    endDate
    pickupLocation
    dropoffLocation
  }
}`

type Mutator interface {
	Mutate(ctx context.Context, token string, request graphql.Request) (*graphql.Response, error)
}

type Submitter struct {
	remote      Mutator
	credentials session.Credentials
	busy        locking.Lock
	logger      *zerolog.Logger
}

// NewSubmitter builds the submitter of one draft; busy is that draft's in-flight flag.
func NewSubmitter(remote Mutator, credentials session.Credentials, busy locking.Lock, logger *zerolog.Logger) *Submitter {
	return &Submitter{
		remote:      remote,
		credentials: credentials,
		busy:        busy,
		logger:      logger,
	}
}

func (s *Submitter) Submitting(ctx context.Context) bool {
	return s.busy.Held(ctx)
}

// Submit validates draft and sends it with the credential held at that moment. While one
// call is in flight every other call returns ErrSubmissionInProgress without touching the
// network. Other errors come from the busy flag's backing store; every remote result is
// reported as an outcome.
func (s *Submitter) Submit(ctx context.Context, draft Snapshot) (outcome.Outcome, error) {
	if err := s.busy.TryAcquire(ctx); err != nil {
		if errors.Is(err, locking.ErrLockHeld) {
			return nil, ErrSubmissionInProgress
		}
		return nil, fmt.Errorf("acquiring submission flag: %w", err)
	}
	defer s.busy.Release(ctx)

	if missing := draft.Missing(); len(missing) > 0 {
		return outcome.ValidationFailed{Missing: missing}, nil
	}

	token, err := s.credentials.Token(ctx)
	if err != nil {
		s.logger.Err(err).Msg("Unable to read credential")
	}
	if token == "" {
		return outcome.Unauthenticated{Origin: outcome.OriginBooking}, nil
	}

	response, err := s.remote.Mutate(ctx, token, graphql.Request{
		Query:         createBookingMutation,
		OperationName: "CreateBooking",
		Variables: map[string]any{
			"carId":           draft.VehicleId,
			"startDate":       FormatDate(draft.StartDate),
			"endDate":         FormatDate(draft.EndDate),
			"pickupLocation":  draft.PickupLocation,
			"dropoffLocation": draft.DropoffLocation,
		},
	})

	if err != nil {
		var remoteErr *schema.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Unauthorized() {
			if clearErr := s.credentials.Clear(ctx); clearErr != nil {
				s.logger.Err(clearErr).Msg("Unable to clear rejected credential")
			}
			return outcome.AuthRejected{Origin: outcome.OriginBooking}, nil
		}

		return outcome.TransportError{Origin: outcome.OriginBooking, Err: err}, nil
	}

	if response.HasErrors() {
		message := response.FirstErrorMessage()
		if message == "" {
			message = FallbackErrorMessage
		}
		return outcome.ApplicationError{Origin: outcome.OriginBooking, Message: message}, nil
	}

	var created schema.Booking
	found, err := response.Field("createBooking", &created)
	if err != nil {
		return outcome.TransportError{Origin: outcome.OriginBooking, Err: err}, nil
	}

	if !found {
		return outcome.ApplicationError{Origin: outcome.OriginBooking, Message: MissingResultMessage}, nil
	}

	return outcome.Success{
		BookingId: created.Id,
		Booking:   created,
		Target:    schema.TargetDashboard,
	}, nil
}
