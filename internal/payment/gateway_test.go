package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tokenRequest() TokenRequest {
	return TokenRequest{
		OrderID:     "co-1",
		GrossAmount: 20000,
		ItemDetails: []ItemDetail{{ID: "p1", Name: "Widget", Price: 10000, Quantity: 2}},
		CustomerDetails: CustomerDetails{
			FirstName: "Customer",
			Email:     "customer@example.com",
		},
	}
}

func TestGatewayCreateToken(t *testing.T) {
	t.Run("SendsChargeAndReturnsToken", func(t *testing.T) {
		var gotAuth string
		var gotBody map[string]any
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/charge", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token":        "snap-token-1",
				"redirect_url": "https://gateway.example/pay/snap-token-1",
			})
		}))
		defer ts.Close()

		g := NewGateway(ts.URL, "server-key", 2*time.Second)
		tok, err := g.CreateToken(context.Background(), tokenRequest())
		require.NoError(t, err)
		require.Equal(t, "snap-token-1", tok.SnapToken)
		require.Equal(t, "https://gateway.example/pay/snap-token-1", tok.RedirectURL)

		// Basic auth header is base64("server-key:").
		require.Equal(t, "Basic c2VydmVyLWtleTo=", gotAuth)

		td := gotBody["transaction_details"].(map[string]any)
		require.Equal(t, "co-1", td["order_id"])
		require.EqualValues(t, 20000, td["gross_amount"])
	})

	t.Run("SurfacesGatewayErrorMessages", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error_messages": []string{"unauthorized"}})
		}))
		defer ts.Close()

		g := NewGateway(ts.URL, "bad-key", 2*time.Second)
		_, err := g.CreateToken(context.Background(), tokenRequest())
		require.Error(t, err)
		require.Contains(t, err.Error(), "unauthorized")
	})

	t.Run("RejectsMissingParameters", func(t *testing.T) {
		g := NewGateway("http://localhost:9", "key", time.Second)
		_, err := g.CreateToken(context.Background(), TokenRequest{})
		require.Error(t, err)
	})

	t.Run("DisabledWithoutServerKey", func(t *testing.T) {
		g := NewGateway("http://localhost:9", "", time.Second)
		require.False(t, g.Enabled())
		_, err := g.CreateToken(context.Background(), tokenRequest())
		require.ErrorIs(t, err, ErrGatewayDisabled)
	})
}
