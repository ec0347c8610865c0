package requesting

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	operationKey contextKey = "operation"
	tokenKey     contextKey = "bearerToken"
)

// WithOperation labels the outgoing request for logging.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// WithBearerToken makes BearerTokenMiddleware attach token to the outgoing request.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func operation(ctx context.Context) string {
	name, _ := ctx.Value(operationKey).(string)
	return name
}

type TransportMiddleware func(http.RoundTripper) http.RoundTripper

type InterceptorTransport struct {
	Transport   http.RoundTripper
	Middlewares []TransportMiddleware
}

func (t *InterceptorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	for _, middleware := range t.Middlewares {
		transport = middleware(transport)
	}

	return transport.RoundTrip(req)
}

type LoggingTransportMiddleware struct {
	Transport   http.RoundTripper
	log         *zerolog.Logger
	destination string
}

func NewLoggingTransportMiddleware(log *zerolog.Logger, destination string) TransportMiddleware {
	return func(rt http.RoundTripper) http.RoundTripper {
		return &LoggingTransportMiddleware{
			log:         log,
			Transport:   rt,
			destination: destination,
		}
	}
}

func (t *LoggingTransportMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	message := t.log.Info().
		Str("label", "outgoing-request").
		Str("destination", t.destination).
		Str("operation", operation(req.Context())).
		Str("method", req.Method).
		Str("url", req.URL.Redacted())

	defer func() {
		message.
			Float64("duration", time.Since(startTime).Seconds()).
			Msg("")
	}()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		message.Str("error", err.Error()).Int("code", 0)
		return nil, err
	}

	message.Int("code", resp.StatusCode)

	return resp, nil
}

type BearerTokenMiddleware struct {
	Transport http.RoundTripper
}

func NewBearerTokenMiddleware() TransportMiddleware {
	return func(rt http.RoundTripper) http.RoundTripper {
		return &BearerTokenMiddleware{Transport: rt}
	}
}

func (b *BearerTokenMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := req.Context().Value(tokenKey).(string)
	if !ok || token == "" {
		return b.Transport.RoundTrip(req)
	}

	// a RoundTripper must not modify the caller's request
	authorized := req.Clone(req.Context())
	authorized.Header.Set("Authorization", "Bearer "+token)

	return b.Transport.RoundTrip(authorized)
}
