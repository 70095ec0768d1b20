package tradeport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAddr = "0x00112233445566778899aabbccddeeff0011223344556677"

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, testAddr, NormalizeAddress("  "+strings.ToUpper(testAddr)+"  "))
}

func TestValidAddress(t *testing.T) {
	require.True(t, ValidAddress(testAddr))
	require.True(t, ValidAddress("0x"+strings.Repeat("a", 40)))
	require.True(t, ValidAddress("0x"+strings.Repeat("f", 64)))
	require.False(t, ValidAddress("0x"+strings.Repeat("a", 39)))
	require.False(t, ValidAddress("0x"+strings.Repeat("a", 65)))
	require.False(t, ValidAddress(strings.Repeat("a", 42)))
	require.False(t, ValidAddress("0x"+strings.Repeat("g", 40)))
	require.False(t, ValidAddress(""))
}

func collectionResponse(title string, verified bool, floor, volume *float64, twitter string) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"movement": map[string]any{
				"collections": []map[string]any{{
					"slug":        testAddr,
					"title":       title,
					"description": "a collection",
					"cover_url":   "https://cdn.example/cover.png",
					"floor":       floor,
					"volume":      volume,
					"verified":    verified,
					"twitter":     twitter,
				}},
			},
		},
	}
}

func newTestServer(t *testing.T, status int, payload any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "key", r.Header.Get("x-api-key"))
		require.Equal(t, "user", r.Header.Get("x-api-user"))
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(endpoint string) *Client {
	return NewClient(Config{APIKey: "key", APIUser: "user", Endpoint: endpoint})
}

func TestLookupFound(t *testing.T) {
	floor := 250000000.0
	volume := 1550000000.0
	srv := newTestServer(t, http.StatusOK,
		collectionResponse("Cool Cats", true, &floor, &volume, "coolcats"))

	v, err := newTestClient(srv.URL).Lookup(context.Background(), testAddr)
	require.NoError(t, err)
	require.True(t, v.Exists)
	require.True(t, v.Verified)
	require.Equal(t, "Cool Cats", v.Metadata.Name)
	require.Equal(t, int64(3), *v.Metadata.FloorPrice)
	require.Equal(t, int64(16), *v.Metadata.Volume)
	require.Equal(t, "https://twitter.com/coolcats", v.Metadata.TwitterURL)
	require.Equal(t, "https://tradeport.xyz/movement/collection/"+testAddr, v.Metadata.TradeportURL)
}

func TestLookupKeepsAbsoluteTwitterURL(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		collectionResponse("Cool Cats", true, nil, nil, "https://x.com/coolcats"))

	v, err := newTestClient(srv.URL).Lookup(context.Background(), testAddr)
	require.NoError(t, err)
	require.Equal(t, "https://x.com/coolcats", v.Metadata.TwitterURL)
	require.Nil(t, v.Metadata.FloorPrice)
}

func TestLookupNotFound(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]any{
		"data": map[string]any{"movement": map[string]any{"collections": []any{}}},
	})

	v, err := newTestClient(srv.URL).Lookup(context.Background(), testAddr)
	require.NoError(t, err)
	require.False(t, v.Exists)
	require.Nil(t, v.Metadata)
}

func TestLookupNamesUntitledCollections(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, collectionResponse("", true, nil, nil, ""))

	v, err := newTestClient(srv.URL).Lookup(context.Background(), testAddr)
	require.NoError(t, err)
	require.Equal(t, "Collection "+testAddr[:10], v.Metadata.Name)
}

func TestLookupGraphQLError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, map[string]any{
		"errors": []map[string]any{{"message": "rate limited"}},
	})

	_, err := newTestClient(srv.URL).Lookup(context.Background(), testAddr)
	require.ErrorContains(t, err, "rate limited")
}

func TestLookupHTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadGateway, map[string]any{})

	_, err := newTestClient(srv.URL).Lookup(context.Background(), testAddr)
	require.ErrorContains(t, err, "status 502")
}

func TestLookupCollapsesConcurrentRequests(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(collectionResponse("Cool Cats", true, nil, nil, ""))
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(srv.URL)
	ctx := context.Background()
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := client.Lookup(ctx, testAddr)
			results <- err
		}()
	}
	// Let every goroutine join the in-flight lookup before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	for i := 0; i < 4; i++ {
		require.NoError(t, <-results)
	}
	require.Equal(t, int64(1), hits.Load())
}
