package clockcheck

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInSyncServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result, err := Check(srv.URL)
	require.NoError(t, err)
	assert.False(t, result.OutOfSync)
	assert.Less(t, result.Skew, MaxAcceptableSkew)
}

func TestCheckSkewedServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skewed := time.Now().Add(2 * time.Hour).UTC().Format(http.TimeFormat)
		w.Header().Set("Date", skewed)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result, err := Check(srv.URL)
	require.NoError(t, err)
	assert.True(t, result.OutOfSync)
}

func TestCheckMalformedDateHeaderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", "not-a-valid-date")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := Check(srv.URL)
	assert.Error(t, err)
}

func TestCheckUnreachableServerErrors(t *testing.T) {
	_, err := Check("http://127.0.0.1:1")
	assert.Error(t, err)
}
