package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveSendsBase64AndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req solveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		img, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(img))
		json.NewEncoder(w).Encode(solveResponse{Result: " a1 b2 "})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Solve(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "A1B2", got)
}

func TestSolvePlainTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("xyzw\n"))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Solve(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "XYZW", got)
}

func TestSolveErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Solve(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	_, err = NewClient(srv.URL).Solve(context.Background(), nil)
	require.Error(t, err)
}
