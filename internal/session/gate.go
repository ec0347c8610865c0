package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

type Decision int

const (
	Unauthorized Decision = iota
	Authorized
)

func (d Decision) String() string {
	if d == Authorized {
		return "authorized"
	}
	return "unauthorized"
}

// CurrentTimeFunc Current time. Can be mocked for testing.
var CurrentTimeFunc = time.Now

// Gate decides locally whether a usable credential exists. It never calls the rental service.
type Gate struct {
	credentials Credentials
	logger      *zerolog.Logger
}

func NewGate(credentials Credentials, logger *zerolog.Logger) *Gate {
	return &Gate{
		credentials: credentials,
		logger:      logger,
	}
}

func (g *Gate) Check(ctx context.Context) Decision {
	token, err := g.credentials.Token(ctx)
	if err != nil {
		g.logger.Err(err).Str("label", "credential-gate").Msg("Unable to read credential")
		return Unauthorized
	}

	if token == "" {
		return Unauthorized
	}

	if expired(token) {
		g.logger.Warn().Str("label", "credential-gate").Msg("Credential expired, clearing")
		if err := g.credentials.Clear(ctx); err != nil {
			g.logger.Err(err).Str("label", "credential-gate").Msg("Unable to clear expired credential")
		}
		return Unauthorized
	}

	return Authorized
}

// expired reports whether token is a JWT whose exp claim has passed. Tokens that are not
// JWTs are opaque to us and never considered expired; the service has the final word.
func expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return false
	}

	if claims.ExpiresAt == nil {
		return false
	}

	return !CurrentTimeFunc().Before(claims.ExpiresAt.Time)
}
