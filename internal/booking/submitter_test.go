package booking_test

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

	"bitbucket.org/crgw/rental-desk/internal/booking"
	"bitbucket.org/crgw/rental-desk/internal/outcome"
	"bitbucket.org/crgw/rental-desk/internal/pricing"
	"bitbucket.org/crgw/rental-desk/internal/schema"
	"bitbucket.org/crgw/rental-desk/internal/session"
	"bitbucket.org/crgw/rental-desk/internal/tools/graphql"
	"bitbucket.org/crgw/rental-desk/internal/tools/locking"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeDraft(t *testing.T) *booking.Draft {
	draft := booking.NewDraft(pricing.NewEngine(pricing.DefaultDailyRate))
	require.NoError(t, draft.Set(booking.FieldVehicleId, "1"))
	require.NoError(t, draft.Set(booking.FieldStartDate, "2024-01-01"))
	require.NoError(t, draft.Set(booking.FieldEndDate, "2024-01-04"))
	require.NoError(t, draft.Set(booking.FieldPickupLocation, "Airport"))
	require.NoError(t, draft.Set(booking.FieldDropoffLocation, "Downtown"))
	return draft
}

func defaultBookingResponse() string {
	return `{"data":{"createBooking":{
		"id":"b-42","status":"PENDING","totalPrice":150,
		"car":{"id":"1","make":"Toyota","model":"Corolla","price":40},
		"user":{"id":"u-1","fullName":"Jane Doe","email":"jane@example.com"},
		"startDate":"2024-01-01","endDate":"2024-01-04",
		"pickupLocation":"Airport","dropoffLocation":"Downtown"}}}`
}

func TestSubmit(t *testing.T) {
	out := &bytes.Buffer{}
	log := zerolog.New(out)

	t.Run("should reject incomplete drafts without calling the service", func(t *testing.T) {
		var calls atomic.Int32
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer testServer.Close()

		submitter := booking.NewSubmitter(graphql.NewClient(testServer.URL, &log), session.NewMemoryStore("token"), locking.NewLocalLock(), &log)

		for _, field := range booking.RequiredFields {
			t.Run(string(field), func(t *testing.T) {
				draft := completeDraft(t)
				require.NoError(t, draft.Set(field, ""))

				result, err := submitter.Submit(context.Background(), draft.Snapshot())
				assert.NoError(t, err)
				assert.Equal(t, outcome.ValidationFailed{Missing: []string{string(field)}}, result)
			})
		}

		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("should send draft as variables and classify responses", func(t *testing.T) {
		tests := []struct {
			name            string
			code            int
			body            string
			expected        outcome.Outcome
			expectedCleared bool
		}{
			{
				name: "success",
				code: http.StatusOK,
				body: defaultBookingResponse(),
				expected: outcome.Success{
					BookingId: "b-42",
					Target:    schema.TargetDashboard,
					Booking: schema.Booking{
						Id: "b-42", Status: "PENDING", TotalPrice: 150,
						Car:       schema.Vehicle{Id: "1", Make: "Toyota", Model: "Corolla", Price: 40},
						User:      schema.User{Id: "u-1", FullName: "Jane Doe", Email: "jane@example.com"},
						StartDate: "2024-01-01", EndDate: "2024-01-04",
						PickupLocation: "Airport", DropoffLocation: "Downtown",
					},
				},
			},
			{
				name:     "application error",
				code:     http.StatusOK,
				body:     `{"errors":[{"message":"Car unavailable"}]}`,
				expected: outcome.ApplicationError{Origin: outcome.OriginBooking, Message: "Car unavailable"},
			},
			{
				name:     "application error without message",
				code:     http.StatusOK,
				body:     `{"data":null,"errors":[{"message":""}]}`,
				expected: outcome.ApplicationError{Origin: outcome.OriginBooking, Message: booking.FallbackErrorMessage},
			},
			{
				name:     "missing result",
				code:     http.StatusOK,
				body:     `{"data":{"createBooking":null}}`,
				expected: outcome.ApplicationError{Origin: outcome.OriginBooking, Message: booking.MissingResultMessage},
			},
			{
				name:            "unauthorized",
				code:            http.StatusUnauthorized,
				body:            `{}`,
				expected:        outcome.AuthRejected{Origin: outcome.OriginBooking},
				expectedCleared: true,
			},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				calls := 0
				testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					calls++
					assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

					body, _ := io.ReadAll(r.Body)
					var request graphql.Request
					assert.NoError(t, json.Unmarshal(body, &request))
					assert.Equal(t, map[string]any{
						"carId":           "1",
						"startDate":       "2024-01-01",
						"endDate":         "2024-01-04",
						"pickupLocation":  "Airport",
						"dropoffLocation": "Downtown",
					}, request.Variables)

					w.WriteHeader(test.code)
					w.Write([]byte(test.body))
				}))
				defer testServer.Close()

				store := session.NewMemoryStore("token")
				submitter := booking.NewSubmitter(graphql.NewClient(testServer.URL, &log), store, locking.NewLocalLock(), &log)

				draft := completeDraft(t)
				before := draft.Snapshot()

				result, err := submitter.Submit(context.Background(), draft.Snapshot())
				assert.NoError(t, err)
				assert.Equal(t, test.expected, result)
				assert.Equal(t, 1, calls)
				assert.Equal(t, before, draft.Snapshot())
				assert.False(t, submitter.Submitting(context.Background()))

				token, _ := store.Token(context.Background())
				if test.expectedCleared {
					assert.Empty(t, token)
				} else {
					assert.Equal(t, "token", token)
				}
			})
		}
	})

	t.Run("should report unreachable service as transport error", func(t *testing.T) {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := testServer.URL
		testServer.Close()

		store := session.NewMemoryStore("token")
		submitter := booking.NewSubmitter(graphql.NewClient(url, &log), store, locking.NewLocalLock(), &log)

		result, err := submitter.Submit(context.Background(), completeDraft(t).Snapshot())
		assert.NoError(t, err)
		assert.IsType(t, outcome.TransportError{}, result)

		token, _ := store.Token(context.Background())
		assert.Equal(t, "token", token)
	})

	t.Run("should not call the service without a credential", func(t *testing.T) {
		calls := 0
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer testServer.Close()

		submitter := booking.NewSubmitter(graphql.NewClient(testServer.URL, &log), session.NewMemoryStore(""), locking.NewLocalLock(), &log)

		result, err := submitter.Submit(context.Background(), completeDraft(t).Snapshot())
		assert.NoError(t, err)
		assert.Equal(t, outcome.Unauthenticated{Origin: outcome.OriginBooking}, result)
		assert.Equal(t, 0, calls)
	})

	t.Run("should allow one submission in flight", func(t *testing.T) {
		var calls atomic.Int32
		entered := make(chan struct{})
		release := make(chan struct{})

		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			close(entered)
			<-release
			w.Write([]byte(defaultBookingResponse()))
		}))
		defer testServer.Close()

		submitter := booking.NewSubmitter(graphql.NewClient(testServer.URL, &log), session.NewMemoryStore("token"), locking.NewLocalLock(), &log)
		snapshot := completeDraft(t).Snapshot()

		var wg sync.WaitGroup
		var first outcome.Outcome
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, _ = submitter.Submit(context.Background(), snapshot)
		}()

		<-entered
		assert.True(t, submitter.Submitting(context.Background()))

		second, err := submitter.Submit(context.Background(), snapshot)
		assert.ErrorIs(t, err, booking.ErrSubmissionInProgress)
		assert.Nil(t, second)

		close(release)
		wg.Wait()

		assert.IsType(t, outcome.Success{}, first)
		assert.Equal(t, int32(1), calls.Load())
		assert.False(t, submitter.Submitting(context.Background()))
	})
}
