package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/lendscore/internal/domain"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 0.5, payload["CIBIL_SCORE"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"probability_of_default":0.25,"credit_score":750}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	res, err := c.Predict(context.Background(), domain.FeatureVector{"CIBIL_SCORE": 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.25, res.ProbabilityOfDefault)
	assert.Equal(t, 750, res.CreditScore)
}

func TestPredictAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is not loaded properly. Cannot make predictions."}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Predict(context.Background(), domain.FeatureVector{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "Model is not loaded properly. Cannot make predictions.", apiErr.Message)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestPredictNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Predict(context.Background(), domain.FeatureVector{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestTimeoutIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 50*time.Millisecond).Predict(context.Background(), domain.FeatureVector{})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Columns(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStatus(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ok","message":"API is online and all assets are loaded."}`))
		}))
		defer srv.Close()

		st, err := New(srv.URL, time.Second).Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", st.Status)
	})

	t.Run("failed assets", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","message":"API is running, but some assets failed to load.","failed":["scaler"]}`))
		}))
		defer srv.Close()

		st, err := New(srv.URL, time.Second).Status(context.Background())
		require.Error(t, err)
		require.NotNil(t, st)
		assert.Equal(t, []string{"scaler"}, st.Failed)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "API is running, but some assets failed to load.", apiErr.Message)
	})
}

func TestColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/columns", r.URL.Path)
		w.Write([]byte(`{"columns":["CIBIL_SCORE","AMT_CREDIT"]}`))
	}))
	defer srv.Close()

	cols, err := New(srv.URL, 0).Columns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CIBIL_SCORE", "AMT_CREDIT"}, cols)
}

func TestDefaultTimeout(t *testing.T) {
	c := New("http://localhost:5000", 0)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}
