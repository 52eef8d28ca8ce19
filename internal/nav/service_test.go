package nav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogJSON = `[
	{"schemeCode": 100123, "schemeName": "HDFC Top 100 Fund - Direct Plan - Growth"},
	{"schemeCode": 100456, "schemeName": "Axis Liquid Fund - Growth"},
	{"schemeCode": "100789", "schemeName": "SBI Bluechip Fund - Regular Plan"}
]`

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	return NewService(client, 0, zap.NewNop()), server
}

func TestResolveSchemeCode(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mf", r.URL.Path)
		w.Write([]byte(catalogJSON))
	})

	code, err := service.ResolveSchemeCode(context.Background(), "HDFC TOP 100 FUND - DIRECT PLAN - GROWTH")
	require.NoError(t, err)
	assert.Equal(t, "100123", code)

	// String-typed scheme codes resolve too.
	code, err = service.ResolveSchemeCode(context.Background(), "SBI Bluechip Fund Regular Plan")
	require.NoError(t, err)
	assert.Equal(t, "100789", code)
}

func TestResolveSchemeCodeBelowThreshold(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogJSON))
	})

	_, err := service.ResolveSchemeCode(context.Background(), "COMPLETELY UNRELATED INSURANCE POLICY")
	assert.ErrorIs(t, err, ErrSchemeNotFound)

	_, err = service.ResolveSchemeCode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrSchemeNotFound)
}

func TestResolveSchemeCodeCatalogError(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := service.ResolveSchemeCode(context.Background(), "HDFC Top 100 Fund")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemeNotFound)
}

func TestCatalogFetchedOnce(t *testing.T) {
	var fetches int32
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Write([]byte(catalogJSON))
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			service.ResolveSchemeCode(context.Background(), "Axis Liquid Fund Growth")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestGetNavHistoryDegradesToEmpty(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	points, err := service.GetNavHistory(context.Background(), "100123")
	assert.NoError(t, err)
	assert.Nil(t, points)
}

func TestGetNavHistoryParsesSeries(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mf/100123", r.URL.Path)
		w.Write([]byte(`{"data": [
			{"date": "03-06-2024", "nav": "125.90"},
			{"date": "not-a-date", "nav": "125.00"},
			{"date": "02-06-2024", "nav": "garbage"},
			{"date": "01-06-2024", "nav": "124.80"}
		]}`))
	})

	points, err := service.GetNavHistory(context.Background(), "100123")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 125.90, points[0].Value)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 124.80, points[1].Value)
}

func TestGetLatestNav(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"date": "03-06-2024", "nav": "125.90"}]}`))
	})

	value, ok := service.GetLatestNav(context.Background(), "100123")
	require.True(t, ok)
	assert.Equal(t, 125.90, value)
}

func TestGetLatestNavEmptySeries(t *testing.T) {
	service, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})

	_, ok := service.GetLatestNav(context.Background(), "100123")
	assert.False(t, ok)
}
