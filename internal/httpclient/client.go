// Package httpclient builds the single, process-wide *http.Client shared
// by every provider adapter (§5): New builds one client with a tuned
// transport, which the caller builds once and shares rather than creating
// one http.Client per outgoing call, following
// the single reference-counted client convention used throughout
// goadesign-goa-ai's runtime/a2a/httpclient.Client.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Options configures New's transport tuning. The zero value selects §5's
// defaults: a 2 second idle-connection timeout and a 60 second keepalive.
type Options struct {
	IdleConnTimeout     time.Duration
	KeepAlive           time.Duration
	MaxIdleConnsPerHost int
	Timeout             time.Duration
}

func (o Options) withDefaults() Options {
	if o.IdleConnTimeout <= 0 {
		o.IdleConnTimeout = 2 * time.Second
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = 60 * time.Second
	}
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = 100
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	return o
}

// New builds an *http.Client with §5's connection-pooling settings. Every
// provider adapter is expected to receive and reuse a single instance of
// this rather than constructing its own http.Client.
func New(opts Options) *http.Client {
	opts = opts.withDefaults()
	dialer := &net.Dialer{KeepAlive: opts.KeepAlive}
	transport := &http.Transport{
		DialContext:         func(ctx context.Context, network, addr string) (net.Conn, error) { return dialer.DialContext(ctx, network, addr) },
		IdleConnTimeout:     opts.IdleConnTimeout,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
}
