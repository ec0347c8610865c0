package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bitbucket.org/crgw/rental-desk/internal/booking"
	"bitbucket.org/crgw/rental-desk/internal/controller"
	"bitbucket.org/crgw/rental-desk/internal/outcome"
	"bitbucket.org/crgw/rental-desk/internal/pricing"
	"bitbucket.org/crgw/rental-desk/internal/schema"
	"bitbucket.org/crgw/rental-desk/internal/session"
	"bitbucket.org/crgw/rental-desk/internal/tools/graphql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogResponse = `{"data":{"getCars":[
	{"id":"1","make":"Toyota","model":"Corolla","price":40},
	{"id":"2","make":"Honda","model":"Civic","price":45}]}}`

const bookingResponse = `{"data":{"createBooking":{"id":"b-1","status":"PENDING","totalPrice":150,
	"car":{"id":"1","make":"Toyota","model":"Corolla","price":40},
	"startDate":"2024-01-01","endDate":"2024-01-04",
	"pickupLocation":"Airport","dropoffLocation":"Downtown"}}}`

type reply struct {
	code int
	body string
}

// remote answers per operation name and counts calls.
type remote struct {
	server  *httptest.Server
	calls   map[string]*atomic.Int32
	replies map[string]reply
	hold    chan struct{}
}

func newRemote(t *testing.T, replies map[string]reply) *remote {
	r := &remote{
		calls: map[string]*atomic.Int32{
			"GetCars":       {},
			"CreateBooking": {},
		},
		replies: replies,
	}

	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var request graphql.Request
		assert.NoError(t, json.Unmarshal(body, &request))

		r.calls[request.OperationName].Add(1)
		if request.OperationName == "CreateBooking" && r.hold != nil {
			<-r.hold
		}

		answer := r.replies[request.OperationName]
		w.WriteHeader(answer.code)
		w.Write([]byte(answer.body))
	}))
	t.Cleanup(r.server.Close)

	return r
}

func (r *remote) count(operation string) int {
	return int(r.calls[operation].Load())
}

type sink struct {
	mu          sync.Mutex
	notices     []string
	navigations []schema.Target
}

func (s *sink) Notify(severity schema.Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, string(severity)+": "+message)
}

func (s *sink) Navigate(target schema.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, target)
}

func (s *sink) targets() []schema.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Target{}, s.navigations...)
}

func (s *sink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.notices...)
}

type fixture struct {
	controller *controller.Controller
	store      session.Store
	remote     *remote
	sink       *sink
}

func newFixture(t *testing.T, token string, replies map[string]reply) *fixture {
	out := &bytes.Buffer{}
	log := zerolog.New(out)

	r := newRemote(t, replies)
	store := session.NewMemoryStore(token)
	s := &sink{}

	c := controller.New(controller.Options{
		Credentials:   store,
		Remote:        graphql.NewClient(r.server.URL, &log),
		Pricing:       pricing.NewEngine(pricing.DefaultDailyRate),
		Notifier:      s,
		Navigator:     s,
		RedirectDelay: 20 * time.Millisecond,
		Logger:        &log,
	})
	t.Cleanup(c.Teardown)

	return &fixture{controller: c, store: store, remote: r, sink: s}
}

func (f *fixture) token(t *testing.T) string {
	token, err := f.store.Token(context.Background())
	require.NoError(t, err)
	return token
}

func (f *fixture) fillDraft(t *testing.T) {
	f.controller.SetQuery("toy")
	require.NoError(t, f.controller.Select("1"))
	require.NoError(t, f.controller.SetField(booking.FieldStartDate, "2024-01-01"))
	require.NoError(t, f.controller.SetField(booking.FieldEndDate, "2024-01-04"))
	require.NoError(t, f.controller.SetField(booking.FieldPickupLocation, "Airport"))
	require.NoError(t, f.controller.SetField(booking.FieldDropoffLocation, "Downtown"))
}

func defaultReplies() map[string]reply {
	return map[string]reply{
		"GetCars":       {http.StatusOK, catalogResponse},
		"CreateBooking": {http.StatusOK, bookingResponse},
	}
}

func TestMount(t *testing.T) {
	ctx := context.Background()

	t.Run("should redirect to signup without any remote call when no credential", func(t *testing.T) {
		f := newFixture(t, "", defaultReplies())

		result, err := f.controller.Mount(ctx)
		assert.NoError(t, err)
		assert.Equal(t, outcome.Unauthenticated{Origin: outcome.OriginMount}, result)
		assert.Equal(t, []schema.Target{schema.TargetSignup}, f.sink.targets())
		assert.Equal(t, 0, f.remote.count("GetCars"))

		_, err = f.controller.Submit(ctx)
		assert.ErrorIs(t, err, controller.ErrNotAuthorized)
	})

	t.Run("should load the catalog and filter it", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())

		result, err := f.controller.Mount(ctx)
		assert.NoError(t, err)
		assert.IsType(t, outcome.Loaded{}, result)
		assert.Equal(t, 1, f.remote.count("GetCars"))
		assert.Empty(t, f.sink.targets())

		assert.Empty(t, f.controller.Visible())

		f.controller.SetQuery("toy")
		assert.Equal(t, []schema.Vehicle{{Id: "1", Make: "Toyota", Model: "Corolla", Price: 40}}, f.controller.Visible())

		f.controller.SetQuery("")
		assert.Empty(t, f.controller.Visible())

		_, err = f.controller.Mount(ctx)
		assert.ErrorIs(t, err, controller.ErrAlreadyMounted)
	})

	t.Run("should clear credential and redirect to signup once on 401", func(t *testing.T) {
		f := newFixture(t, "token", map[string]reply{"GetCars": {http.StatusUnauthorized, `{}`}})

		result, err := f.controller.Mount(ctx)
		assert.NoError(t, err)
		assert.Equal(t, outcome.AuthRejected{Origin: outcome.OriginCatalog}, result)
		assert.Empty(t, f.token(t))
		assert.Equal(t, []schema.Target{schema.TargetSignup}, f.sink.targets())
	})

	t.Run("should surface application errors and keep the view", func(t *testing.T) {
		f := newFixture(t, "token", map[string]reply{"GetCars": {http.StatusOK, `{"errors":[{"message":"Service paused"}]}`}})

		_, err := f.controller.Mount(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"error: Service paused"}, f.sink.messages())
		assert.Empty(t, f.sink.targets())
		assert.Equal(t, "token", f.token(t))
		assert.Equal(t, 0, f.controller.State(ctx).CatalogSize)
	})

	t.Run("should report unreachable service and redirect to signup keeping the credential", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())
		f.remote.server.Close()

		result, err := f.controller.Mount(ctx)
		assert.NoError(t, err)
		assert.IsType(t, outcome.TransportError{}, result)
		assert.Equal(t, []string{"error: " + outcome.AuthFailedMessage}, f.sink.messages())
		assert.Equal(t, []schema.Target{schema.TargetSignup}, f.sink.targets())
		assert.Equal(t, "token", f.token(t))
	})
}

func TestSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "token", defaultReplies())
	_, err := f.controller.Mount(ctx)
	require.NoError(t, err)

	f.controller.SetQuery("civ")
	require.NoError(t, f.controller.Select("2"))

	state := f.controller.State(ctx)
	assert.Equal(t, "Honda Civic", state.Query)
	assert.False(t, state.PickerOpen)
	assert.Empty(t, state.Visible)
	assert.Equal(t, "2", state.Draft.VehicleId)

	f.controller.SetQuery("Honda")
	assert.Len(t, f.controller.Visible(), 1)

	assert.ErrorIs(t, f.controller.Select("99"), controller.ErrUnknownVehicle)
	assert.ErrorIs(t, f.controller.SetField(booking.FieldVehicleId, "1"), controller.ErrSelectVehicle)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("should price the draft from its dates", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)

		require.NoError(t, f.controller.SetField(booking.FieldStartDate, "2024-01-01"))
		require.NoError(t, f.controller.SetField(booking.FieldEndDate, "2024-01-04"))
		assert.Equal(t, 150.0, *f.controller.Draft().TotalPrice)

		require.NoError(t, f.controller.SetField(booking.FieldStartDate, ""))
		assert.Nil(t, f.controller.Draft().TotalPrice)
	})

	t.Run("should reject incomplete draft locally", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)

		result, err := f.controller.Submit(ctx)
		assert.NoError(t, err)
		assert.IsType(t, outcome.ValidationFailed{}, result)
		assert.Equal(t, []string{"error: " + outcome.ValidationMessage}, f.sink.messages())
		assert.Equal(t, 0, f.remote.count("CreateBooking"))
	})

	t.Run("should create booking and redirect to dashboard after the delay", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)
		f.fillDraft(t)

		result, err := f.controller.Submit(ctx)
		assert.NoError(t, err)
		if assert.IsType(t, outcome.Success{}, result) {
			assert.Equal(t, "b-1", result.(outcome.Success).BookingId)
		}

		assert.Equal(t, []string{"success: " + outcome.SuccessMessage}, f.sink.messages())
		assert.Empty(t, f.sink.targets())

		state := f.controller.State(ctx)
		assert.True(t, state.RedirectSoon)
		if assert.NotNil(t, state.LastBooking) {
			assert.Equal(t, "b-1", state.LastBooking.Id)
		}

		assert.Eventually(t, func() bool {
			return len(f.sink.targets()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []schema.Target{schema.TargetDashboard}, f.sink.targets())
	})

	t.Run("should keep the draft on application error", func(t *testing.T) {
		replies := defaultReplies()
		replies["CreateBooking"] = reply{http.StatusOK, `{"errors":[{"message":"Car unavailable"}]}`}
		f := newFixture(t, "token", replies)
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)
		f.fillDraft(t)
		before := f.controller.Draft()

		result, err := f.controller.Submit(ctx)
		assert.NoError(t, err)
		assert.Equal(t, outcome.ApplicationError{Origin: outcome.OriginBooking, Message: "Car unavailable"}, result)
		assert.Equal(t, []string{"error: Car unavailable"}, f.sink.messages())
		assert.Equal(t, before, f.controller.Draft())

		time.Sleep(40 * time.Millisecond)
		assert.Empty(t, f.sink.targets())
	})

	t.Run("should clear credential and redirect to login once on 401", func(t *testing.T) {
		replies := defaultReplies()
		replies["CreateBooking"] = reply{http.StatusUnauthorized, `{}`}
		f := newFixture(t, "token", replies)
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)
		f.fillDraft(t)

		result, err := f.controller.Submit(ctx)
		assert.NoError(t, err)
		assert.Equal(t, outcome.AuthRejected{Origin: outcome.OriginBooking}, result)
		assert.Empty(t, f.token(t))
		assert.Equal(t, []schema.Target{schema.TargetLogin}, f.sink.targets())
	})

	t.Run("should send one request for concurrent submits", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)
		f.fillDraft(t)
		f.remote.hold = make(chan struct{})

		done := make(chan outcome.Outcome, 1)
		go func() {
			result, _ := f.controller.Submit(ctx)
			done <- result
		}()

		assert.Eventually(t, func() bool {
			return f.remote.count("CreateBooking") == 1
		}, time.Second, time.Millisecond)
		assert.True(t, f.controller.State(ctx).Submitting)

		_, err = f.controller.Submit(ctx)
		assert.ErrorIs(t, err, booking.ErrSubmissionInProgress)

		close(f.remote.hold)
		assert.IsType(t, outcome.Success{}, <-done)
		assert.Equal(t, 1, f.remote.count("CreateBooking"))
	})

	t.Run("should cancel the pending redirect on teardown", func(t *testing.T) {
		f := newFixture(t, "token", defaultReplies())
		_, err := f.controller.Mount(ctx)
		require.NoError(t, err)
		f.fillDraft(t)

		_, err = f.controller.Submit(ctx)
		require.NoError(t, err)
		f.controller.Teardown()

		time.Sleep(60 * time.Millisecond)
		assert.Empty(t, f.sink.targets())

		_, err = f.controller.Submit(ctx)
		assert.ErrorIs(t, err, controller.ErrTornDown)
	})
}
