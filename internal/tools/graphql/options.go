package graphql

import (
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

type OptionFunc func(o *Options)

type Options struct {
	// Name of the caller, sent as the User-Agent
	name string

	// Timeout - if not set, then default timeout is used
	timeout time.Duration

	// QueryMethod - http method for read queries, POST or GET. Mutations are always POSTed.
	queryMethod string

	// Transport - defaults to http.DefaultTransport
	transport http.RoundTripper
}

func WithName(name string) OptionFunc {
	return func(o *Options) {
		o.name = name
	}
}

func WithTimeout(timeout time.Duration) OptionFunc {
	return func(o *Options) {
		o.timeout = timeout
	}
}

func WithQueryMethod(method string) OptionFunc {
	return func(o *Options) {
		o.queryMethod = strings.ToUpper(method)
	}
}

func WithTransport(transport http.RoundTripper) OptionFunc {
	return func(o *Options) {
		o.transport = transport
	}
}

func NewOptions(optionFuncs ...OptionFunc) *Options {
	options := &Options{
		name:        "rental-desk",
		queryMethod: http.MethodPost,
	}

	for _, optionFunc := range optionFuncs {
		optionFunc(options)
	}

	return options
}

func (o *Options) Name() string {
	return o.name
}

func (o *Options) Timeout() time.Duration {
	if o.timeout != 0 {
		return o.timeout
	}
	return DefaultTimeout
}

func (o *Options) QueryMethod() string {
	if o.queryMethod == http.MethodGet {
		return http.MethodGet
	}
	return http.MethodPost
}

func (o *Options) Transport() http.RoundTripper {
	if o.transport != nil {
		return o.transport
	}
	return http.DefaultTransport
}
