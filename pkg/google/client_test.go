package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		mask := r.Header.Get("X-Goog-FieldMask")
		assert.Contains(t, mask, "places.formattedAddress")
		assert.Contains(t, mask, "places.types")

		var body textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Brilliant Diamonds brilliantdiamonds.co.uk", body.TextQuery)
		assert.Equal(t, 5, body.PageSize)

		_, _ = w.Write([]byte(`{"places":[{
			"displayName":{"text":"Brilliant Diamonds"},
			"formattedAddress":"88 Hatton Garden, London EC1N 8PN, UK",
			"types":["jewelry_store","store"],
			"rating":4.8,
			"userRatingCount":212,
			"websiteUri":"https://brilliantdiamonds.co.uk/"
		}]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("test-key", WithBaseURL(srv.URL)).TextSearch(context.Background(), "Brilliant Diamonds brilliantdiamonds.co.uk")
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)

	p := resp.Places[0]
	assert.Equal(t, "Brilliant Diamonds", p.DisplayName.Text)
	assert.Equal(t, "88 Hatton Garden, London EC1N 8PN, UK", p.FormattedAddress)
	assert.Equal(t, []string{"jewelry_store", "store"}, p.Types)
	assert.InDelta(t, 4.8, p.Rating, 0.001)
	assert.Equal(t, 212, p.UserRatingCount)
}

func TestTextSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).TextSearch(context.Background(), "Nonexistent Corp")
	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`))
	}))
	defer srv.Close()

	resp, err := NewClient("bad-key", WithBaseURL(srv.URL)).TextSearch(context.Background(), "test query")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
}

func TestTextSearch_EmptyQuery(t *testing.T) {
	_, err := NewClient("k").TextSearch(context.Background(), "  ")
	require.Error(t, err)
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).TextSearch(ctx, "test")
	assert.Error(t, err)
	assert.Nil(t, resp)
}
