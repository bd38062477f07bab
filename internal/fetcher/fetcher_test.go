package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRetryBudget_RateLimited(t *testing.T) {
	var attempts atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 0)
	resp, err := client.R().SetContext(context.Background()).Get("")

	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2 (initial + one retry)", got)
	}

	cerr := Classify(resp, err)
	if cerr == nil {
		t.Fatal("Classify() = nil, want rate limit error")
	}
	if TypeOf(cerr) != ErrorTypeRateLimit {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(cerr), ErrorTypeRateLimit)
	}
}

func TestRetryBudget_ServerError(t *testing.T) {
	var attempts atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 0)
	resp, err := client.R().SetContext(context.Background()).Get("")

	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}

	cerr := Classify(resp, err)
	if TypeOf(cerr) != ErrorTypeNetwork {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(cerr), ErrorTypeNetwork)
	}
}

func TestRetry_RecoversOnSecondAttempt(t *testing.T) {
	var attempts atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 0)
	resp, err := client.R().SetContext(context.Background()).Get("")

	if cerr := Classify(resp, err); cerr != nil {
		t.Fatalf("Classify() = %v, want nil", cerr)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestRetryCondition_NoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 0)
	resp, err := client.R().SetContext(context.Background()).Get("")

	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is not transient)", got)
	}

	cerr := Classify(resp, err)
	if TypeOf(cerr) != ErrorTypeNetwork {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(cerr), ErrorTypeNetwork)
	}
}

func TestClassify_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	client := NewClient(server.URL, 0)
	resp, err := client.R().SetContext(context.Background()).Get("")

	cerr := Classify(resp, err)
	if TypeOf(cerr) != ErrorTypeNetwork {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(cerr), ErrorTypeNetwork)
	}
}

func TestClassify_MalformedBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price": not-json`))
	})

	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 0)
	var out struct {
		Price float64 `json:"price"`
	}
	resp, err := client.R().SetContext(context.Background()).SetResult(&out).Get("")

	cerr := Classify(resp, err)
	if cerr == nil {
		t.Fatal("Classify() = nil, want malformed error")
	}
	if TypeOf(cerr) != ErrorTypeMalformed {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(cerr), ErrorTypeMalformed)
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewNetworkError(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should reach the wrapped cause")
	}

	var fe *FetchError
	if !errors.As(error(err), &fe) {
		t.Fatal("errors.As() failed to extract *FetchError")
	}
	if fe.Type != ErrorTypeNetwork {
		t.Errorf("Type = %q, want %q", fe.Type, ErrorTypeNetwork)
	}
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{"with status", NewRateLimitError(429), "rate_limit error (status 429): rate limit exceeded"},
		{"without status", NewNotFoundError("no results"), "not_found error: no results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeOf_NonFetchError(t *testing.T) {
	if got := TypeOf(errors.New("plain")); got != "" {
		t.Errorf("TypeOf(plain error) = %q, want empty", got)
	}
}
