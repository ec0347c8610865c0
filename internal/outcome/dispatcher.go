package outcome

import (
	"sync"
	"time"

	"bitbucket.org/crgw/rental-desk/internal/schema"
	"github.com/rs/zerolog"
)

const (
	SuccessMessage          = "Rental booking submitted successfully!"
	ValidationMessage       = "Please fill in all required fields"
	AuthFailedMessage       = "Authentication failed. Please sign up or log in."
	GenericErrorMessage     = "Something went wrong. Please try again."
	DefaultRedirectDelay    = 3 * time.Second
	redirectDashboardReason = "booking-created"
)

// Notifier shows a one-line message to the user; fire and forget.
type Notifier interface {
	Notify(severity schema.Severity, message string)
}

// Navigator transfers the view to target.
type Navigator interface {
	Navigate(target schema.Target)
}

// Dispatcher turns outcomes into user feedback and navigation. The post-success redirect is
// scheduled and dies with the dispatcher: after Close nothing is delivered.
type Dispatcher struct {
	notifier      Notifier
	navigator     Navigator
	redirectDelay time.Duration
	logger        *zerolog.Logger

	mu      sync.Mutex
	pending *time.Timer
	closed  bool
}

func NewDispatcher(notifier Notifier, navigator Navigator, redirectDelay time.Duration, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier:      notifier,
		navigator:     navigator,
		redirectDelay: redirectDelay,
		logger:        logger,
	}
}

func (d *Dispatcher) Dispatch(outcome Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Debug().Str("outcome", outcome.Kind()).Msg("Dispatcher closed, outcome dropped")
		return
	}

	switch o := outcome.(type) {
	case Loaded:
		d.logger.Info().Int("vehicles", len(o.Vehicles)).Msg("Catalog ready")

	case Success:
		d.logger.Info().Str("bookingId", o.BookingId).Msg("Booking created")
		d.notifier.Notify(schema.SeveritySuccess, SuccessMessage)
		d.schedule(o.Target)

	case ValidationFailed:
		d.logger.Warn().Strs("missing", o.Missing).Msg("Booking draft incomplete")
		d.notifier.Notify(schema.SeverityError, ValidationMessage)

	case Unauthenticated:
		d.logger.Warn().Str("origin", string(o.Origin)).Msg("No usable credential")
		if o.Origin != OriginMount {
			d.notifier.Notify(schema.SeverityError, AuthFailedMessage)
		}
		d.navigate(schema.TargetSignup)

	case AuthRejected:
		d.logger.Warn().Str("origin", string(o.Origin)).Msg("Credential rejected by rental service")
		if o.Origin == OriginBooking {
			d.navigate(schema.TargetLogin)
		} else {
			d.navigate(schema.TargetSignup)
		}

	case ApplicationError:
		d.logger.Error().Str("origin", string(o.Origin)).Str("message", o.Message).Msg("Rental service refused the request")
		message := o.Message
		if message == "" {
			message = GenericErrorMessage
		}
		d.notifier.Notify(schema.SeverityError, message)

	case TransportError:
		d.logger.Error().Err(o.Err).Str("origin", string(o.Origin)).Msg("Rental service unreachable")
		d.notifier.Notify(schema.SeverityError, AuthFailedMessage)
		d.navigate(schema.TargetSignup)

	default:
		d.logger.Error().Str("outcome", outcome.Kind()).Msg("Unhandled outcome")
	}
}

// navigate moves immediately; a pending delayed redirect is superseded.
func (d *Dispatcher) navigate(target schema.Target) {
	d.cancelPending()
	d.navigator.Navigate(target)
}

func (d *Dispatcher) schedule(target schema.Target) {
	d.cancelPending()

	var timer *time.Timer
	timer = time.AfterFunc(d.redirectDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.closed || d.pending != timer {
			return
		}

		d.pending = nil
		d.logger.Info().Str("target", string(target)).Str("reason", redirectDashboardReason).Msg("Delayed redirect")
		d.navigator.Navigate(target)
	})
	d.pending = timer
}

func (d *Dispatcher) cancelPending() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Dispatcher) RedirectPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Close cancels the pending redirect. Later outcomes are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelPending()
	d.closed = true
}
