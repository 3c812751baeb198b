package registry

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// probeTimeout is the hard cap on a single probe, independent of the
// scheduler budget driving it.
const probeTimeout = 5 * time.Second

// CheckerKind selects how an instance is probed.
type CheckerKind string

const (
	// CheckerHTTP probes with a GET against the instance health URL.
	CheckerHTTP CheckerKind = "http"
	// CheckerTCP probes by dialing the instance host and port.
	CheckerTCP CheckerKind = "tcp"
)

// Checker performs one health probe against an instance.
type Checker interface {
	// Check returns nil when the instance answered within the probe budget.
	Check(ctx context.Context, inst *ServiceInstance) error
}

// NewChecker returns the checker for the given kind. An empty kind
// defaults to HTTP; anything else is rejected.
func NewChecker(kind CheckerKind) (Checker, error) {
	switch kind {
	case CheckerHTTP, "":
		return NewHTTPChecker(), nil
	case CheckerTCP:
		return NewTCPChecker(), nil
	default:
		return nil, fmt.Errorf("unsupported checker kind %q", kind)
	}
}

// HTTPChecker probes over HTTP. Any 2xx answer counts as healthy.
type HTTPChecker struct {
	client *http.Client
}

// NewHTTPChecker creates an HTTP checker with a shared client.
func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{client: &http.Client{}}
}

// Check issues a GET against the instance health URL.
func (c *HTTPChecker) Check(ctx context.Context, inst *ServiceInstance) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, inst.HealthURL(), nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", inst.HealthURL(), err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: status %d", inst.HealthURL(), resp.StatusCode)
	}
	return nil
}

// TCPChecker probes by establishing a TCP connection to host:port.
type TCPChecker struct {
	dialer net.Dialer
}

// NewTCPChecker creates a TCP checker.
func NewTCPChecker() *TCPChecker {
	return &TCPChecker{}
}

// Check dials the instance and closes the connection immediately.
func (c *TCPChecker) Check(ctx context.Context, inst *ServiceInstance) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	addr := net.JoinHostPort(inst.Host, strconv.Itoa(inst.Port))
	conn, err := c.dialer.DialContext(probeCtx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("probe %s: %w", addr, err)
	}
	return conn.Close()
}

var (
	_ Checker = (*HTTPChecker)(nil)
	_ Checker = (*TCPChecker)(nil)
)
