package controller

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"bitbucket.org/crgw/rental-desk/internal/booking"
	"bitbucket.org/crgw/rental-desk/internal/catalog"
	"bitbucket.org/crgw/rental-desk/internal/outcome"
	"bitbucket.org/crgw/rental-desk/internal/pricing"
	"bitbucket.org/crgw/rental-desk/internal/schema"
	"bitbucket.org/crgw/rental-desk/internal/session"
	"bitbucket.org/crgw/rental-desk/internal/tools/locking"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyMounted = errors.New("controller already mounted")
	ErrNotAuthorized  = errors.New("controller is not authorized")
	ErrTornDown       = errors.New("controller torn down")
	ErrUnknownVehicle = errors.New("vehicle not in catalog")
	ErrSelectVehicle  = errors.New("the vehicle is set by selecting it from the catalog")
)

// Remote is the rental service as seen by the controller.
type Remote interface {
	catalog.Querier
	booking.Mutator
}

type Options struct {
	Credentials   session.Credentials
	Remote        Remote
	Busy          locking.Lock
	Pricing       pricing.Engine
	Notifier      outcome.Notifier
	Navigator     outcome.Navigator
	RedirectDelay time.Duration
	Logger        *zerolog.Logger
}

// State is what the presentation renders.
type State struct {
	Authorized   bool
	CatalogSize  int
	Query        string
	PickerOpen   bool
	Visible      []schema.Vehicle
	Draft        booking.Snapshot
	Submitting   bool
	LastBooking  *schema.Booking
	RedirectSoon bool
}

// Controller is the booking workflow of one view: gate, catalog, search, draft, submit.
// Remote calls run without holding the state lock, so input events keep being handled while
// a load or a submit is in flight.
type Controller struct {
	credentials session.Credentials
	gate        *session.Gate
	loader      *catalog.Loader
	submitter   *booking.Submitter
	dispatcher  *outcome.Dispatcher
	logger      *zerolog.Logger

	mu          sync.Mutex
	mounted     bool
	authorized  bool
	tornDown    bool
	index       *catalog.Index
	query       string
	pickerOpen  bool
	draft       *booking.Draft
	lastBooking *schema.Booking
}

func New(o Options) *Controller {
	busy := o.Busy
	if busy == nil {
		busy = locking.NewLocalLock()
	}

	return &Controller{
		credentials: o.Credentials,
		gate:        session.NewGate(o.Credentials, o.Logger),
		loader:      catalog.NewLoader(o.Remote, o.Credentials, o.Logger),
		submitter:   booking.NewSubmitter(o.Remote, o.Credentials, busy, o.Logger),
		dispatcher:  outcome.NewDispatcher(o.Notifier, o.Navigator, o.RedirectDelay, o.Logger),
		logger:      o.Logger,
		index:       catalog.NewIndex(),
		draft:       booking.NewDraft(o.Pricing),
	}
}

// Mount runs the credential gate and, only once it passes, the catalog load.
func (c *Controller) Mount(ctx context.Context) (outcome.Outcome, error) {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return nil, ErrTornDown
	}
	if c.mounted {
		c.mu.Unlock()
		return nil, ErrAlreadyMounted
	}
	c.mounted = true
	c.mu.Unlock()

	if c.gate.Check(ctx) != session.Authorized {
		result := outcome.Unauthenticated{Origin: outcome.OriginMount}
		c.dispatcher.Dispatch(result)
		return result, nil
	}

	c.mu.Lock()
	c.authorized = true
	c.mu.Unlock()

	token, err := c.credentials.Token(ctx)
	if err != nil || token == "" {
		c.logger.Err(err).Msg("Credential vanished after the gate")
		result := outcome.Unauthenticated{Origin: outcome.OriginMount}
		c.dispatcher.Dispatch(result)
		return result, nil
	}

	result := c.loader.Load(ctx, token)

	c.mu.Lock()
	switch r := result.(type) {
	case outcome.Loaded:
		c.index.Replace(r.Vehicles)
	case outcome.AuthRejected:
		c.authorized = false
	}
	c.mu.Unlock()

	c.dispatcher.Dispatch(result)

	return result, nil
}

// SetQuery replaces the search text and opens the picker.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.pickerOpen = true
}

// Visible is the picker content: empty while the picker is collapsed or the query is empty.
func (c *Controller) Visible() []schema.Vehicle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible()
}

func (c *Controller) visible() []schema.Vehicle {
	if !c.pickerOpen {
		return []schema.Vehicle{}
	}

	vehicles := slices.Collect(c.index.Filter(c.query))
	if vehicles == nil {
		return []schema.Vehicle{}
	}
	return vehicles
}

// Select puts the vehicle on the draft, shows its name as the query and collapses the picker.
func (c *Controller) Select(vehicleId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	vehicle, ok := c.index.Find(vehicleId)
	if !ok {
		return ErrUnknownVehicle
	}

	c.draft.SetVehicle(vehicle.Id)
	c.query = vehicle.DisplayName()
	c.pickerOpen = false

	return nil
}

// SetField applies a date or location edit; the total price follows the dates.
func (c *Controller) SetField(field booking.Field, value string) error {
	if field == booking.FieldVehicleId {
		return ErrSelectVehicle
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.draft.Set(field, value)
}

func (c *Controller) Draft() booking.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Snapshot()
}

// Submit sends the current draft. A call made while another is in flight returns
// booking.ErrSubmissionInProgress and has no effect.
func (c *Controller) Submit(ctx context.Context) (outcome.Outcome, error) {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return nil, ErrTornDown
	}
	if !c.authorized {
		c.mu.Unlock()
		return nil, ErrNotAuthorized
	}
	snapshot := c.draft.Snapshot()
	c.mu.Unlock()

	result, err := c.submitter.Submit(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	switch r := result.(type) {
	case outcome.Success:
		created := r.Booking
		c.lastBooking = &created
	case outcome.AuthRejected, outcome.Unauthenticated:
		c.authorized = false
	}
	c.mu.Unlock()

	c.dispatcher.Dispatch(result)

	return result, nil
}

func (c *Controller) State(ctx context.Context) State {
	submitting := c.submitter.Submitting(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	state := State{
		Authorized:   c.authorized,
		CatalogSize:  c.index.Len(),
		Query:        c.query,
		PickerOpen:   c.pickerOpen,
		Visible:      c.visible(),
		Draft:        c.draft.Snapshot(),
		Submitting:   submitting,
		RedirectSoon: c.dispatcher.RedirectPending(),
	}

	if c.lastBooking != nil {
		created := *c.lastBooking
		state.LastBooking = &created
	}

	return state
}

// Teardown ends the view: the pending dashboard redirect is cancelled and later outcomes are
// dropped.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.tornDown = true
	c.mu.Unlock()

	c.dispatcher.Close()
}
