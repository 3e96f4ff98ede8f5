// Package pool owns the rotating credential pool used for every upstream
// call. One client is lazily constructed and cached per credential; rotation
// happens only on rate-limit failures.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/pkg/client"
)

var (
	// ErrNoCredentials is returned when constructing a pool without credentials.
	ErrNoCredentials = errors.New("credential pool needs at least one credential")
	// ErrPoolExhausted is returned once every credential in the pool has been
	// rate limited within a single Run call.
	ErrPoolExhausted = errors.New("all credentials are rate-limited")
)

// Client is the per-credential upstream surface the pool hands to tasks.
type Client interface {
	FetchTimeline(ctx context.Context, accountID, cursor string, pageSize int) ([]byte, error)
}

// Task is one unit of work executed against a ready client. It returns the
// raw page body; interpretation happens upstream of the pool.
type Task func(ctx context.Context, c Client) ([]byte, error)

// Factory builds the client for a credential. Injectable for tests.
type Factory func(credential string) (Client, error)

// Pool rotates through an ordered credential list. The rotation index and the
// client cache are shared across accounts, so both sit behind a mutex.
type Pool struct {
	credentials []string
	factory     Factory

	mutex   sync.Mutex
	index   int
	clients map[string]Client

	onRotate func() // optional stats hook
}

type PoolOption func(*Pool)

// WithFactory overrides the client factory.
func WithFactory(f Factory) PoolOption {
	return func(p *Pool) { p.factory = f }
}

// WithRotationHook installs a callback invoked on every rotation.
func WithRotationHook(fn func()) PoolOption {
	return func(p *Pool) { p.onRotate = fn }
}

// New builds a pool over the given credentials. Client options are passed
// through to the default factory.
func New(credentials []string, clientOpts []client.Option, opts ...PoolOption) (*Pool, error) {
	if len(credentials) == 0 {
		return nil, ErrNoCredentials
	}
	p := &Pool{
		credentials: credentials,
		clients:     make(map[string]Client, len(credentials)),
		factory: func(credential string) (Client, error) {
			return client.NewTimelineClient(credential, clientOpts...)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.credentials)
}

// Run executes the task against one ready client. On a rate-limit failure it
// rotates to the next credential and tries again; once every credential has
// failed with rate limiting in this call it gives up with ErrPoolExhausted.
// Any other failure propagates immediately, without rotation.
func (p *Pool) Run(ctx context.Context, task Task) ([]byte, error) {
	var lastErr error
	for attempts := 0; attempts < len(p.credentials); attempts++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, credential, err := p.current()
		if err != nil {
			return nil, err
		}

		out, err := task(ctx, c)
		if err == nil {
			return out, nil
		}
		if !client.IsRateLimited(err) {
			return nil, err
		}

		logrus.Warnf("credential %s rate limited, rotating", redact(credential))
		p.rotate()
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrPoolExhausted, lastErr)
}

// current returns the cached client at the rotation index, constructing it on
// first use.
func (p *Pool) current() (Client, string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	credential := p.credentials[p.index]
	if c, ok := p.clients[credential]; ok {
		return c, credential, nil
	}
	c, err := p.factory(credential)
	if err != nil {
		return nil, credential, fmt.Errorf("constructing client: %w", err)
	}
	p.clients[credential] = c
	return c, credential, nil
}

func (p *Pool) rotate() {
	p.mutex.Lock()
	p.index = (p.index + 1) % len(p.credentials)
	p.mutex.Unlock()
	if p.onRotate != nil {
		p.onRotate()
	}
}

// redact keeps only a short prefix of a credential for log lines.
func redact(credential string) string {
	if len(credential) <= 6 {
		return "******"
	}
	return credential[:6] + "…"
}
