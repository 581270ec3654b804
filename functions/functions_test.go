package functions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-edu-portal/functions"
	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	srv    *httptest.Server
	client *functions.Client
	calls  atomic.Int32
	fail   atomic.Int32 // status to fail with, 0 for success
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		require.Equal(t, "Bearer fn-key", r.Header.Get("Authorization"))
		if status := f.fail.Load(); status != 0 {
			w.WriteHeader(int(status))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
			return
		}
		var in struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "echo: " + in.Message})
	})
	mux.HandleFunc("POST /payment-link", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Plan   string `json:"plan"`
			UserID string `json:"userId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example.com/" + in.Plan + "/" + in.UserID})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	var err error
	f.client, err = functions.New(f.srv.URL+"/", "fn-key", time.Second, functions.WithHTTPClient(f.srv.Client()))
	require.NoError(t, err)
	return f
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("reply", func(t *testing.T) {
		f := setupTestFixture(t)
		reply, err := f.client.Chat(ctx, "hello")
		require.NoError(t, err)
		require.Equal(t, "echo: hello", reply)
	})

	t.Run("blank message is not sent", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.client.Chat(ctx, "  ")
		require.Error(t, err)
		require.Zero(t, f.calls.Load())
	})

	t.Run("client errors do not open the breaker", func(t *testing.T) {
		f := setupTestFixture(t)
		f.fail.Store(http.StatusBadRequest)
		for i := 0; i < 5; i++ {
			_, err := f.client.Chat(ctx, "hello")
			var se *functions.StatusError
			require.ErrorAs(t, err, &se)
			require.Equal(t, "boom", se.Message)
		}
		require.Equal(t, int32(5), f.calls.Load())
	})

	t.Run("server errors open the breaker", func(t *testing.T) {
		f := setupTestFixture(t)
		f.fail.Store(http.StatusBadGateway)
		for i := 0; i < 3; i++ {
			_, err := f.client.Chat(ctx, "hello")
			require.Error(t, err)
		}
		_, err := f.client.Chat(ctx, "hello")
		require.True(t, errors.Is(err, errors.ErrFunctionUnavailable))
		require.Equal(t, int32(3), f.calls.Load())
	})
}

func TestPaymentLink(t *testing.T) {
	f := setupTestFixture(t)
	url, err := f.client.PaymentLink(context.Background(), "premium", "user-1")
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com/premium/user-1", url)

	_, err = f.client.PaymentLink(context.Background(), "", "user-1")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	_, err := functions.New("", "key", 0)
	require.Error(t, err)
}
