package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/swrcache/types"
)

func newServer(t *testing.T, h http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	exec, err := New(srv.URL+"/", WithTimeout(2*time.Second))
	require.NoError(t, err)
	return exec
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("dummyjson.com")
	assert.Error(t, err)

	_, err = New("ftp://dummyjson.com")
	assert.Error(t, err)
}

func TestFetchSendsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	exec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"todos":[],"total":0}`))
	})

	data, err := exec.Fetch(context.Background(), types.NewKey("todos", map[string][]string{"limit": {"5"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"todos":[],"total":0}`, string(data))

	require.NotNil(t, got)
	assert.Equal(t, "/todos", got.URL.Path)
	assert.Equal(t, "5", got.URL.Query().Get("limit"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	_, err = uuid.Parse(got.Header.Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestHTTPErrorCarriesMessage(t *testing.T) {
	exec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Product with id '999' not found"}`))
	})

	_, err := exec.Get(context.Background(), "products/999")
	require.Error(t, err)

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.StatusCode())
	assert.Equal(t, "NOT_FOUND_ERROR", he.ErrCode())
	assert.Equal(t, "Product with id '999' not found", he.Message)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestServerErrorWithoutBody(t *testing.T) {
	exec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := exec.Get(context.Background(), "todos")
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "SERVER_ERROR", he.ErrCode())
	assert.Empty(t, he.Message)
	assert.False(t, IsNotFound(err))
}

func TestDecodeError(t *testing.T) {
	exec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := exec.Get(context.Background(), "todos")
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "DECODE_ERROR", de.ErrCode())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	exec, err := New(base)
	require.NoError(t, err)

	_, err = exec.Get(context.Background(), "todos")
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, http.MethodGet, ne.Method)
}

func TestWritesSendJSONBody(t *testing.T) {
	var method, contentType string
	var body map[string]any
	exec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Write([]byte(`{"id":31,"todo":"write tests"}`))
	})

	data, err := exec.Post(context.Background(), "todos/add", map[string]any{"todo": "write tests", "userId": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":31,"todo":"write tests"}`, string(data))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "write tests", body["todo"])

	_, err = exec.Delete(context.Background(), "todos/31")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
}

func TestConcurrentFetchSharesRoundTrip(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	exec := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"ok":true}`))
	})

	key := types.NewKey("products/categories", nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Fetch(context.Background(), key)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}
