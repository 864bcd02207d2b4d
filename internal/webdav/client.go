package webdav

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/studio-b12/gowebdav"
	"golang.org/x/time/rate"
)

// ClientOptions tune the WebDAV adapter.
type ClientOptions struct {
	// Timeout bounds every single operation.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing traffic. Zero disables
	// throttling.
	RequestsPerSecond float64
	// MaxRetries is the budget for transient failures per operation.
	MaxRetries int
}

// DefaultClientOptions returns sensible defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		MaxRetries:        3,
	}
}

// Client adapts gowebdav to the Transport contract, adding bounded
// timeouts, request throttling, and retry of transient failures. Auth
// failures and missing paths are never retried.
type Client struct {
	dav     *gowebdav.Client
	limiter *rate.Limiter
	retries uint64
}

// NewClient builds a Transport for the given endpoint with basic auth.
func NewClient(serverURL, username, password string, opts ClientOptions) *Client {
	dav := gowebdav.NewClient(serverURL, username, password)
	if opts.Timeout > 0 {
		dav.SetTimeout(opts.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	retries := uint64(0)
	if opts.MaxRetries > 0 {
		retries = uint64(opts.MaxRetries)
	}

	return &Client{dav: dav, limiter: limiter, retries: retries}
}

// do runs one operation under the rate limiter with retry on transient
// failures.
func (c *Client) do(ctx context.Context, op func() error) error {
	backoff := retry.WithMaxRetries(c.retries, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := op()
		if err == nil {
			return nil
		}
		err = translate(err)
		if Classify(err) == KindTransient {
			return retry.RetryableError(err)
		}
		return err
	})
}

// translate maps gowebdav errors onto the package taxonomy.
func translate(err error) error {
	switch {
	case gowebdav.IsErrNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case gowebdav.IsErrCode(err, http.StatusUnauthorized),
		gowebdav.IsErrCode(err, http.StatusForbidden):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	default:
		return err
	}
}

// Ping verifies connectivity and credentials. Connection-level failures
// surface as ErrUnreachable so the engine can treat them as fatal.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.dav.Connect(); err != nil {
		err = translate(err)
		if Classify(err) == KindTransient {
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return err
	}
	return nil
}

// Read returns the content at path.
func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, func() error {
		var err error
		data, err = c.dav.Read(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Write creates or overwrites the file at path.
func (c *Client) Write(ctx context.Context, path string, data []byte) error {
	return c.do(ctx, func() error {
		return c.dav.Write(path, data, 0644)
	})
}

// Mkdir creates a collection, succeeding if it already exists.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	return c.do(ctx, func() error {
		err := c.dav.MkdirAll(path, 0755)
		// Some servers answer 405 for an existing collection.
		if err != nil && gowebdav.IsErrCode(err, http.StatusMethodNotAllowed) {
			return nil
		}
		return err
	})
}

// Remove deletes a file or directory tree.
func (c *Client) Remove(ctx context.Context, path string) error {
	return c.do(ctx, func() error {
		err := c.dav.RemoveAll(path)
		if err != nil && gowebdav.IsErrNotFound(err) {
			return nil
		}
		return err
	})
}
