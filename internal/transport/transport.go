package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/adorun/internal/auth"
	"github.com/loykin/adorun/internal/common"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/httpc"
)

// Requester is the single call the rest of the system needs from the transport.
type Requester interface {
	Request(ctx context.Context, method, endpoint string, body any, headers map[string]string) (envelope.Envelope, error)
}

// Options configures a Client.
type Options struct {
	// Server is the collection base URL. One trailing slash is stripped.
	Server string
	// Auth yields the Authorization header value.
	Auth auth.Method
	// HTTP carries timeout and TLS settings for the resty client.
	HTTP   *httpc.Httpc
	Logger *common.Logger
}

// Client issues authenticated JSON requests against one server.
type Client struct {
	base      string
	auth      auth.Method
	tlsConfig *tls.Config
	rc        *resty.Client
	logger    *common.Logger
}

// New builds a Client. Server and Auth are required.
func New(opts Options) (*Client, error) {
	server := strings.TrimSpace(opts.Server)
	if server == "" {
		return nil, errors.New("transport: server is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("transport: auth method is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	var tlsCfg *tls.Config
	if opts.HTTP != nil {
		tlsCfg = opts.HTTP.TlsConfig
	}
	return &Client{
		base:      strings.TrimSuffix(server, "/"),
		auth:      opts.Auth,
		tlsConfig: tlsCfg,
		rc:        opts.HTTP.New(),
		logger:    logger.WithComponent("transport"),
	}, nil
}

// NewPAT is a shortcut for a Client authenticating with a personal access token.
func NewPAT(server, token string, h *httpc.Httpc) (*Client, error) {
	common.RegisterSecret(token)
	return New(Options{Server: server, Auth: auth.PATConfig{Token: token}, HTTP: h})
}

// Server returns the base URL used to build request URLs.
func (c *Client) Server() string { return c.base }

// Request sends one call and decodes the response body. No retries are made.
// Caller headers override the defaults. The body is omitted when it is nil or
// encodes to an empty JSON object.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, headers map[string]string) (envelope.Envelope, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	fail := func(status int, b []byte, cause error) (envelope.Envelope, error) {
		return envelope.Envelope{}, &TransportError{Method: method, Endpoint: endpoint, StatusCode: status, Message: serverMessage(b), Body: snippet(b), Cause: cause}
	}
	if err := ctx.Err(); err != nil {
		return fail(0, nil, err)
	}

	authz, err := c.auth.Acquire(auth.WithTLSConfig(ctx, c.tlsConfig))
	if err != nil {
		return fail(0, nil, fmt.Errorf("acquire credentials: %w", err))
	}
	common.RegisterSecret(authz)

	req := c.rc.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", authz)
	for k, v := range headers {
		req.SetHeader(k, v)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return fail(0, nil, err)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	url := c.base + endpoint
	log := c.logger.WithRequest(method, url)
	log.Debug("sending request", "body_size", len(payload))

	resp, err := req.Execute(method, url)
	if err != nil {
		log.Debug("request failed", "error", err)
		return fail(0, nil, err)
	}
	status := resp.StatusCode()
	raw := resp.Body()
	log.Debug("received response", "status_code", status, "response_size", len(raw))

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fail(status, raw, ErrStatus)
	}
	env, err := envelope.Parse(raw)
	if err != nil {
		return fail(status, raw, err)
	}
	return env, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	var b []byte
	switch v := body.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case json.RawMessage:
		b = v
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		b = enc
	}
	t := bytes.TrimSpace(b)
	if len(t) == 0 || bytes.Equal(t, []byte("{}")) || bytes.Equal(t, []byte("null")) {
		return nil, nil
	}
	return b, nil
}
