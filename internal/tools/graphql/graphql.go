package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bitbucket.org/crgw/rental-desk/internal/schema"
	"bitbucket.org/crgw/rental-desk/internal/tools/requesting"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"
)

// Request is a parameterized operation. User-supplied values travel only in Variables and
// are never spliced into Query.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type getParams struct {
	Query         string `url:"query"`
	OperationName string `url:"operationName,omitempty"`
	Variables     string `url:"variables,omitempty"`
}

type Client struct {
	endpoint   string
	options    *Options
	httpClient *http.Client
}

func NewClient(endpoint string, logger *zerolog.Logger, optionFuncs ...OptionFunc) *Client {
	options := NewOptions(optionFuncs...)

	return &Client{
		endpoint: endpoint,
		options:  options,
		httpClient: &http.Client{
			Timeout: options.Timeout(),
			Transport: &requesting.InterceptorTransport{
				Transport: options.Transport(),
				Middlewares: []requesting.TransportMiddleware{
					requesting.NewBearerTokenMiddleware(),
					requesting.NewLoggingTransportMiddleware(logger, "graphql"),
				},
			},
		},
	}
}

// Query runs a read operation with the configured query method.
func (c *Client) Query(ctx context.Context, token string, request Request) (*Response, error) {
	return c.execute(ctx, c.options.QueryMethod(), token, request)
}

// Mutate runs a write operation; always POST.
func (c *Client) Mutate(ctx context.Context, token string, request Request) (*Response, error) {
	return c.execute(ctx, http.MethodPost, token, request)
}

func (c *Client) execute(ctx context.Context, method string, token string, request Request) (*Response, error) {
	ctx = requesting.WithOperation(ctx, request.OperationName)
	ctx = requesting.WithBearerToken(ctx, token)

	httpRequest, err := c.newRequest(ctx, method, request)
	if err != nil {
		return nil, err
	}

	httpResponse, e := requesting.RequestErrors(c.httpClient.Do(httpRequest))
	if e != nil {
		return nil, e
	}
	defer httpResponse.Body.Close()

	bodyBytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		e := schema.NewConnectionError(err.Error())
		return nil, &e
	}

	response := Response{StatusCode: httpResponse.StatusCode}
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		e := schema.NewMalformedResponseError(
			fmt.Sprintf("status code %d, undecodable body: %s", httpResponse.StatusCode, err.Error()),
		)
		return nil, &e
	}

	// a non-2xx status without the error envelope carries nothing the user can act on
	if !requesting.IsSuccessful(response.StatusCode) && !response.HasErrors() && isNull(response.Data) {
		e := schema.NewMalformedResponseError(fmt.Sprintf("remote service returned status code %d", response.StatusCode))
		return nil, &e
	}

	return &response, nil
}

func (c *Client) newRequest(ctx context.Context, method string, request Request) (*http.Request, error) {
	var httpRequest *http.Request

	if method == http.MethodGet {
		params := getParams{
			Query:         request.Query,
			OperationName: request.OperationName,
		}

		if len(request.Variables) > 0 {
			variables, err := json.Marshal(request.Variables)
			if err != nil {
				return nil, fmt.Errorf("encoding variables: %w", err)
			}
			params.Variables = string(variables)
		}

		values, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("encoding query parameters: %w", err)
		}

		separator := "?"
		if strings.Contains(c.endpoint, "?") {
			separator = "&"
		}

		httpRequest, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+separator+values.Encode(), nil)
		if err != nil {
			return nil, err
		}
	} else {
		body, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}

		httpRequest, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpRequest.Header.Set("Content-Type", "application/json")
	}

	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("User-Agent", c.options.Name())

	return httpRequest, nil
}
