package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"momentum/pkg/auth"
	"momentum/pkg/errs"
)

const serverRequestTimeout = 90 * time.Second

// ServerClient invokes AI operations through the server-side function,
// which holds the provider credential and proxies the completion call.
type ServerClient struct {
	url      string
	client   *http.Client
	identity auth.Provider
}

// NewServerClient returns a client for the AI function at url. An empty
// url means no server path is configured; Invoke reports that as a config
// error and the resolver falls through to the direct path.
func NewServerClient(url string, identity auth.Provider) *ServerClient {
	return &ServerClient{
		url:      url,
		client:   &http.Client{Timeout: serverRequestTimeout},
		identity: identity,
	}
}

type serverRequest struct {
	Action Operation `json:"action"`
	Params
}

type serverError struct {
	Error string `json:"error"`
}

// Invoke posts the operation to the server function and returns the raw
// response body. Parsing and validation happen in the gateway so both
// resolution paths share one shape check.
func (c *ServerClient) Invoke(ctx context.Context, op Operation, params Params) (string, error) {
	if c.url == "" {
		return "", errs.New(errs.KindConfig, "no server function URL configured")
	}

	payload, err := json.Marshal(serverRequest{Action: op, Params: params})
	if err != nil {
		return "", errs.NewWithCause(errs.KindUnknown, err, "marshal server request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", errs.NewWithCause(errs.KindUnknown, err, "build server request")
	}
	req.Header.Set("Content-Type", "application/json")
	if id, ok := c.identity.Current(); ok {
		req.Header.Set("Authorization", "Bearer "+id.AccessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.NewWithCause(errs.KindUpstream, err, "server function unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errs.NewWithCause(errs.KindUpstream, err, "read server response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var se serverError
		if json.Unmarshal(body, &se) == nil && se.Error != "" {
			return "", errs.NewWithStatus(errKindForStatus(resp.StatusCode), resp.StatusCode, se.Error)
		}
		return "", errs.NewWithStatus(errKindForStatus(resp.StatusCode), resp.StatusCode,
			fmt.Sprintf("server function returned HTTP %d", resp.StatusCode))
	}
	return string(body), nil
}

func errKindForStatus(status int) errs.Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.KindAuth
	default:
		return errs.KindUpstream
	}
}
