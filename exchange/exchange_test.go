package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRate(t *testing.T) {
	c := qt.New(t)

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		c.Assert(r.URL.Path, qt.Equals, "/latest")
		c.Assert(r.URL.Query().Get("base"), qt.Equals, "USD")
		c.Assert(r.URL.Query().Get("symbols"), qt.Equals, "CNY")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"CNY":7.25}}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	rate, err := client.Rate(context.Background(), "usd", "cny")
	c.Assert(err, qt.IsNil)
	c.Assert(rate, qt.Equals, 7.25)

	// second lookup is served from the cache
	rate, err = client.Rate(context.Background(), "USD", "CNY")
	c.Assert(err, qt.IsNil)
	c.Assert(rate, qt.Equals, 7.25)
	c.Assert(requests.Load(), qt.Equals, int64(1))
}

func TestRateSameCurrency(t *testing.T) {
	c := qt.New(t)
	client := New("http://invalid.localhost")
	rate, err := client.Rate(context.Background(), "CNY", "cny")
	c.Assert(err, qt.IsNil)
	c.Assert(rate, qt.Equals, float64(1))
}

func TestRateUpstreamErrors(t *testing.T) {
	c := qt.New(t)

	// upstream 500
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := New(srv.URL)
	_, err := client.Rate(context.Background(), "USD", "CNY")
	c.Assert(err, qt.ErrorIs, ErrUpstream)

	// missing rate in the response
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{}}`))
	}))
	defer srv2.Close()
	client2 := New(srv2.URL)
	_, err = client2.Rate(context.Background(), "USD", "CNY")
	c.Assert(err, qt.ErrorIs, ErrUpstream)

	// unreachable upstream
	client3 := New("http://127.0.0.1:1")
	_, err = client3.Rate(context.Background(), "USD", "CNY")
	c.Assert(err, qt.ErrorIs, ErrUpstream)
}
