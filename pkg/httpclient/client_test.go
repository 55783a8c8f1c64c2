package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-jaundice-rate/pkg/retry"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	// モックの設定側で *http.Response 型の nil を返す必要がある
	return args.Get(0).(*http.Response), args.Error(1)
}

// fastRetry はテスト用の高速なリトライ設定です。
var fastRetry = retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.httpClient.(*http.Client).Timeout)
		assert.Equal(t, UserAgent, client.userAgent)
	})
	t.Run("custom timeout", func(t *testing.T) {
		client := New(3 * time.Second)
		assert.Equal(t, 3*time.Second, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("options", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(time.Second, WithHTTPClient(mockClient), WithMaxRetries(5), WithUserAgent("jaundice-test"))
		assert.Equal(t, mockClient, client.httpClient)
		assert.Equal(t, uint64(5), client.retryConfig.MaxRetries)
		assert.Equal(t, "jaundice-test", client.userAgent)
	})
	t.Run("empty user agent is ignored", func(t *testing.T) {
		client := New(time.Second, WithUserAgent(""))
		assert.Equal(t, UserAgent, client.userAgent)
	})
}

func TestNonRetryableHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected string
	}{
		{"non-empty body", []byte("error body"), "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディ: error body"},
		{"empty body", nil, "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディなし"},
		{"truncated body", []byte(strings.Repeat("a", 1025)), "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディ: " + strings.Repeat("a", 1024) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &NonRetryableHTTPError{StatusCode: 400, Body: tt.body}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestFetchBytes(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<title>Заголовок</title>"))
		}))
		defer server.Close()

		client := New(time.Second, WithRetryConfig(fastRetry))
		body, err := client.FetchBytes(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "<title>Заголовок</title>", string(body))
		assert.Equal(t, UserAgent, gotUA)
	})

	t.Run("windows-1251 body is decoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=windows-1251")
			// "Мир" in windows-1251
			_, _ = w.Write([]byte{0xCC, 0xE8, 0xF0})
		}))
		defer server.Close()

		client := New(time.Second, WithRetryConfig(fastRetry))
		body, err := client.FetchBytes(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "Мир", string(body))
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer server.Close()

		client := New(time.Second, WithRetryConfig(fastRetry))
		_, err := client.FetchBytes(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, IsNonRetryableError(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("5xx is retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 2 {
				http.Error(w, "boom", http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := New(time.Second, WithRetryConfig(fastRetry))
		body, err := client.FetchBytes(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("context deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		client := New(5*time.Second, WithRetryConfig(fastRetry))
		_, err := client.FetchBytes(ctx, server.URL)
		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestFetchBytes_InvalidURL(t *testing.T) {
	mockClient := new(MockHTTPClient)
	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))

	for _, rawURL := range []string{"ffsdfsgf", "ftp://inosmi.ru/a", "http://", "http://[::1"} {
		t.Run(rawURL, func(t *testing.T) {
			_, err := client.FetchBytes(context.Background(), rawURL)
			require.Error(t, err)
			assert.True(t, IsInvalidURLError(err))
		})
	}
	mockClient.AssertNotCalled(t, "Do", mock.Anything)
}

func TestFetchBytes_TransportError(t *testing.T) {
	mockClient := new(MockHTTPClient)
	var resp *http.Response
	mockClient.On("Do", mock.Anything).Return(resp, errors.New("connection refused"))

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))
	_, err := client.FetchBytes(context.Background(), "https://inosmi.ru/a.html")
	require.Error(t, err)
	assert.False(t, IsInvalidURLError(err))
	assert.False(t, IsNonRetryableError(err))
	assert.False(t, IsTimeout(err))
	// 初回 + リトライ2回
	mockClient.AssertNumberOfCalls(t, "Do", 3)
}

func TestCheckResponse(t *testing.T) {
	newResp := func(code int) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader([]byte("body")))}
	}

	assert.NoError(t, checkResponse(newResp(http.StatusOK)))
	assert.NoError(t, checkResponse(newResp(http.StatusNoContent)))
	assert.True(t, IsNonRetryableError(checkResponse(newResp(http.StatusForbidden))))
	assert.True(t, IsNonRetryableError(checkResponse(newResp(http.StatusMovedPermanently))))

	err := checkResponse(newResp(http.StatusServiceUnavailable))
	require.Error(t, err)
	assert.False(t, IsNonRetryableError(err))
	assert.True(t, isHTTPRetryableError(err))
}

func TestIsHTTPRetryableError(t *testing.T) {
	assert.False(t, isHTTPRetryableError(nil))
	assert.False(t, isHTTPRetryableError(context.Canceled))
	assert.False(t, isHTTPRetryableError(&InvalidURLError{URL: "x", Reason: "r"}))
	assert.False(t, isHTTPRetryableError(&NonRetryableHTTPError{StatusCode: 404}))
	assert.True(t, isHTTPRetryableError(errors.New("connection reset")))
}
