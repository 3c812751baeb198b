package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewChecker(t *testing.T) {
	tests := []struct {
		name    string
		kind    CheckerKind
		want    Checker
		wantErr bool
	}{
		{"http", CheckerHTTP, &HTTPChecker{}, false},
		{"empty defaults to http", "", &HTTPChecker{}, false},
		{"tcp", CheckerTCP, &TCPChecker{}, false},
		{"unsupported", "udp", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewChecker(tc.kind)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewChecker failed: %v", err)
			}
			switch tc.want.(type) {
			case *HTTPChecker:
				if _, ok := c.(*HTTPChecker); !ok {
					t.Errorf("expected *HTTPChecker, got %T", c)
				}
			case *TCPChecker:
				if _, ok := c.(*TCPChecker); !ok {
					t.Errorf("expected *TCPChecker, got %T", c)
				}
			}
		})
	}
}

func TestHTTPCheckerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	inst := &ServiceInstance{Name: "svc", Host: host, Port: port, HealthEndpoint: "/health"}
	if err := NewHTTPChecker().Check(context.Background(), inst); err != nil {
		t.Errorf("expected any 2xx to pass, got %v", err)
	}
}

func TestHTTPCheckerNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	inst := &ServiceInstance{Name: "svc", Host: host, Port: port, HealthEndpoint: "/health"}
	if err := NewHTTPChecker().Check(context.Background(), inst); err == nil {
		t.Error("expected a 503 to fail the probe")
	}
}

func TestHTTPCheckerConnectionRefused(t *testing.T) {
	inst := &ServiceInstance{Name: "svc", Host: "127.0.0.1", Port: refusedPort(t), HealthEndpoint: "/health"}
	if err := NewHTTPChecker().Check(context.Background(), inst); err == nil {
		t.Error("expected a refused connection to fail the probe")
	}
}

func TestHTTPCheckerCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inst := &ServiceInstance{Name: "svc", Host: host, Port: port, HealthEndpoint: "/health"}
	if err := NewHTTPChecker().Check(ctx, inst); err == nil {
		t.Error("expected a canceled context to fail the probe")
	}
}

func TestTCPCheckerSuccess(t *testing.T) {
	// Any listener passes a TCP probe, regardless of what it speaks.
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	host, port := serverHostPort(t, srv)

	inst := &ServiceInstance{Name: "svc", Host: host, Port: port}
	if err := NewTCPChecker().Check(context.Background(), inst); err != nil {
		t.Errorf("expected the dial to succeed, got %v", err)
	}
}

func TestTCPCheckerRefused(t *testing.T) {
	inst := &ServiceInstance{Name: "svc", Host: "127.0.0.1", Port: refusedPort(t)}
	if err := NewTCPChecker().Check(context.Background(), inst); err == nil {
		t.Error("expected a refused connection to fail the probe")
	}
}
