package redisfactory

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// A client per concern so that credentials and submission locks can live on separate
// instances. An empty URI leaves the concern on its in-process implementation.

type Factory struct {
	credentials *redis.Client
	locks       *redis.Client
}

func New(credentialsURI string, locksURI string) (*Factory, error) {
	credentials, err := newClient(credentialsURI)
	if err != nil {
		return nil, err
	}

	locks, err := newClient(locksURI)
	if err != nil {
		return nil, err
	}

	return &Factory{
		credentials: credentials,
		locks:       locks,
	}, nil
}

func newClient(uri string) (*redis.Client, error) {
	if uri == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}

	opt.DialTimeout = 4 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	return redis.NewClient(opt), nil
}

// CredentialsClient is nil when credentials are kept in memory.
func (f *Factory) CredentialsClient() *redis.Client {
	return f.credentials
}

// LocksClient is nil when submission locks are process local.
func (f *Factory) LocksClient() *redis.Client {
	return f.locks
}

func (f *Factory) Close() error {
	for _, client := range []*redis.Client{f.credentials, f.locks} {
		if client == nil {
			continue
		}
		if err := client.Close(); err != nil {
			return err
		}
	}
	return nil
}
