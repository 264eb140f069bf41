package keygate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DecodesDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/services/authority-1", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"authority":   "authority-1",
				"name":        "payments",
				"total_keys":  3,
				"active_keys": 2,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok"))
	svc, err := client.GetService(context.Background(), "authority-1")
	require.NoError(t, err)
	assert.Equal(t, "payments", svc.Name)
	assert.Equal(t, uint64(3), svc.TotalKeys)
}

func TestClient_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error": map[string]string{
				"code":    "rate_limit_exceeded",
				"message": "daily request allowance exhausted",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("tok"))
	_, err := client.RecordRequest(context.Background(), "a", "o", 0)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
}

func TestHMACSigner_MintsVerifiableToken(t *testing.T) {
	signer := &HMACSigner{Secret: "s", Issuer: "keygate", Signer: "authority-1"}
	token, err := signer.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
