package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL   = "https://api.x.com/2"
	timelineEndpoint = "timeline/user"
)

// TimelineClient talks to the upstream timeline API on behalf of a single
// credential. The credential pool caches one client per credential for the
// process lifetime.
type TimelineClient struct {
	credential string
	baseURL    string
	httpClient *http.Client
	options    *Options
}

// NewTimelineClient creates a client bound to one credential.
func NewTimelineClient(credential string, opts ...Option) (*TimelineClient, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create options: %w", err)
	}

	transport := &http.Transport{
		MaxConnsPerHost:     options.MaxConnsPerHost,
		MaxIdleConns:        options.MaxIdleConns,
		MaxIdleConnsPerHost: options.MaxIdleConnsPerHost,
		IdleConnTimeout:     options.IdleConnTimeout,
	}

	return &TimelineClient{
		credential: credential,
		baseURL:    options.BaseURL,
		httpClient: &http.Client{Timeout: options.Timeout, Transport: transport},
		options:    options,
	}, nil
}

// FetchTimeline retrieves one raw timeline page for the account. The cursor
// is the opaque token from the previous page; empty means the newest page.
// The body is returned as-is; parsing is the caller's business.
func (c *TimelineClient) FetchTimeline(ctx context.Context, accountID, cursor string, pageSize int) ([]byte, error) {
	params := url.Values{}
	params.Add("account_id", accountID)
	if cursor != "" {
		params.Add("cursor", cursor)
	}
	if pageSize > 0 {
		params.Add("count", strconv.Itoa(pageSize))
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, timelineEndpoint, params.Encode())
	logrus.Debug("GET request to: ", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.credential))
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error making GET request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	return body, nil
}

// do sends the request, retrying transport-level failures (connection resets,
// DNS hiccups) with exponential backoff. HTTP status handling is left to the
// caller: a 429 belongs to the credential pool, not to this retry loop.
func (c *TimelineClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = c.options.MaxRetryElapsed

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			logrus.Warnf("transport error, will retry: %v", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
