package catalog

import (
	"context"
	"errors"

	"bitbucket.org/crgw/rental-desk/internal/outcome"
	"bitbucket.org/crgw/rental-desk/internal/schema"
	"bitbucket.org/crgw/rental-desk/internal/session"
	"bitbucket.org/crgw/rental-desk/internal/tools/graphql"
	"github.com/rs/zerolog"
)

const FallbackErrorMessage = "Failed to fetch cars"

const getCarsQuery = `query GetCars {
  getCars {
    id
    make
    model
    price
  }
}`

type Querier interface {
	Query(ctx context.Context, token string, request graphql.Request) (*graphql.Response, error)
}

type Loader struct {
	remote      Querier
	credentials session.Credentials
	logger      *zerolog.Logger
}

func NewLoader(remote Querier, credentials session.Credentials, logger *zerolog.Logger) *Loader {
	return &Loader{
		remote:      remote,
		credentials: credentials,
		logger:      logger,
	}
}

// Load fetches the full catalog. The result is one of outcome.Loaded, outcome.AuthRejected,
// outcome.ApplicationError or outcome.TransportError.
func (l *Loader) Load(ctx context.Context, token string) outcome.Outcome {
	response, err := l.remote.Query(ctx, token, graphql.Request{
		Query:         getCarsQuery,
		OperationName: "GetCars",
	})

	if err != nil {
		var remoteErr *schema.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.Unauthorized() {
			if clearErr := l.credentials.Clear(ctx); clearErr != nil {
				l.logger.Err(clearErr).Msg("Unable to clear rejected credential")
			}
			return outcome.AuthRejected{Origin: outcome.OriginCatalog}
		}

		return outcome.TransportError{Origin: outcome.OriginCatalog, Err: err}
	}

	if response.HasErrors() {
		message := response.FirstErrorMessage()
		if message == "" {
			message = FallbackErrorMessage
		}

		return outcome.ApplicationError{Origin: outcome.OriginCatalog, Message: message}
	}

	vehicles := []schema.Vehicle{}
	if _, err := response.Field("getCars", &vehicles); err != nil {
		return outcome.TransportError{Origin: outcome.OriginCatalog, Err: err}
	}

	if vehicles == nil {
		vehicles = []schema.Vehicle{}
	}

	l.logger.Debug().Int("vehicles", len(vehicles)).Msg("Catalog loaded")

	return outcome.Loaded{Vehicles: vehicles}
}
