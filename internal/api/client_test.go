// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vaulthub-tui/internal/credential"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeDeauth struct {
	store credential.Store
	calls atomic.Int32
}

func (f *fakeDeauth) ForceLogout(ctx context.Context) {
	f.calls.Add(1)
	_ = f.store.Clear(ctx)
}

type harness struct {
	client   *Client
	store    *credential.MemoryStore
	notices  *notice.Recorder
	deauth   *fakeDeauth
	server   *httptest.Server
	lastAuth atomic.Value
	hits     atomic.Int32
}

func newHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()
	h := &harness{
		store:   credential.NewMemoryStore(),
		notices: &notice.Recorder{},
	}
	h.deauth = &fakeDeauth{store: h.store}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		h.lastAuth.Store(r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(h.server.Close)

	h.client = New(h.server.URL+"/api", h.store).
		WithNotifier(h.notices).
		WithDeauthenticator(h.deauth).
		WithTimeout(2 * time.Second)
	return h
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Envelope{Code: code, Message: message, Data: raw})
}

func ok(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "success", data)
	}
}

// =============================================================================
// CREDENTIAL INJECTION
// =============================================================================

func TestSend_AttachesBearerWhenPresent(t *testing.T) {
	h := newHarness(t, ok(map[string]string{"x": "y"}))
	require.NoError(t, h.store.Set(context.Background(), "tok-123"))

	_, err := h.client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", h.lastAuth.Load())
}

func TestSend_NoBearerWhenAbsent(t *testing.T) {
	h := newHarness(t, ok(nil))

	_, err := h.client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", h.lastAuth.Load())
}

func TestSend_RequestShape(t *testing.T) {
	var gotPath, gotQuery, gotReqID, gotType string
	var gotBody map[string]string
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		gotReqID = r.Header.Get(RequestIDHeader)
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, 200, "success", nil)
	})

	_, err := h.client.ListSecrets(context.Background(), ListSecretsRequest{SecretType: SecretAPIKey, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/secrets", gotPath)
	assert.Equal(t, "page=2&secret_type=api_key", gotQuery)
	assert.Len(t, gotReqID, 36)

	_, err = h.client.DecryptSecret(context.Background(), "abc", "pin-1234")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/secrets/abc/decrypt", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "pin-1234", gotBody["security_pin"])
}

// =============================================================================
// ENVELOPE CLASSIFICATION
// =============================================================================

func TestDo_SuccessDecodesData(t *testing.T) {
	h := newHarness(t, ok(UserInfo{Username: "alice", Role: RoleAdmin}))

	user, err := h.client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.Empty(t, h.notices.Notices())
}

// Envelope 401: credential cleared, notice shown, logout run, typed error.
func TestSend_EnvelopeUnauthorized(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "expired", nil)
	})
	require.NoError(t, h.store.Set(context.Background(), "stale"))

	_, err := h.client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, "expired", MessageOf(err))
	tok, _ := h.store.Get(context.Background())
	assert.Empty(t, tok)
	assert.Equal(t, int32(1), h.deauth.calls.Load())
	assert.Equal(t, []notice.Key{notice.KeySessionExpired}, h.notices.Keys())
}

func TestSend_ApplicationCodeSurfacesMessage(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 40002, "secret name already exists", nil)
	})
	require.NoError(t, h.store.Set(context.Background(), "tok"))

	_, err := h.client.Send(context.Background(), http.MethodPost, "/v1/secrets", map[string]string{}, nil)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindApplication, apiErr.Kind)
	assert.Equal(t, 40002, apiErr.Code)
	assert.Equal(t, "secret name already exists", apiErr.Message)

	notices := h.notices.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "secret name already exists", notices[0].Text)

	tok, _ := h.store.Get(context.Background())
	assert.Equal(t, "tok", tok, "application errors must not touch the session")
	assert.Zero(t, h.deauth.calls.Load())
}

func TestSend_MalformedEnvelope(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway</html>"))
	})

	_, err := h.client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)
	assert.ErrorIs(t, err, ErrServer)
}

func TestDo_UndecodableDataIsClassified(t *testing.T) {
	h := newHarness(t, ok("not a user"))

	_, err := h.client.CurrentUser(context.Background())

	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, []notice.Key{notice.KeyServerError}, h.notices.Keys())
}

func TestWithCodes(t *testing.T) {
	var code atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, int(code.Load()), "m", map[string]bool{"ok": true})
	})
	h.client.WithCodes(Codes{Success: []int{0}, Unauthorized: []int{20002, 20003}})
	ctx := context.Background()

	code.Store(0)
	_, err := h.client.Send(ctx, http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)

	code.Store(20003)
	_, err = h.client.Send(ctx, http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrAuthentication)

	code.Store(200)
	_, err = h.client.Send(ctx, http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrApplication)
}

// =============================================================================
// HTTP STATUS CLASSIFICATION
// =============================================================================

func TestSend_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *Error
		key    notice.Key
		text   string
	}{
		{"forbidden", 403, "", ErrPermission, notice.KeyNoPermission, ""},
		{"not found", 404, "", ErrNotFound, notice.KeyNotFound, ""},
		{"server", 500, "", ErrServer, notice.KeyServerError, ""},
		{"bad gateway", 502, "", ErrServer, notice.KeyServerError, ""},
		{"teapot with message", 418, `{"code":10001,"message":"bad pin format"}`, ErrApplication, notice.KeyRequestFailed, "bad pin format"},
		{"bad request no body", 400, "", ErrApplication, notice.KeyRequestFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			require.NoError(t, h.store.Set(context.Background(), "tok"))

			_, err := h.client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)

			assert.ErrorIs(t, err, tt.want)
			notices := h.notices.Notices()
			require.Len(t, notices, 1)
			assert.Equal(t, tt.key, notices[0].Key)
			assert.Equal(t, tt.text, notices[0].Text)
			tok, _ := h.store.Get(context.Background())
			assert.Equal(t, "tok", tok)
		})
	}
}

func TestSend_HTTPUnauthorized(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(t, h.store.Set(context.Background(), "tok"))

	_, err := h.client.Send(context.Background(), http.MethodGet, "/v1/auth/current", nil, nil)

	assert.ErrorIs(t, err, ErrAuthentication)
	tok, _ := h.store.Get(context.Background())
	assert.Empty(t, tok)
	assert.Equal(t, []notice.Key{notice.KeySessionExpired}, h.notices.Keys())
}

func TestSend_UnauthorizedWithoutDeauthenticatorClearsStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "expired", nil)
	}))
	defer srv.Close()
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "tok"))

	_, err := New(srv.URL, store).Send(context.Background(), http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrAuthentication)
	tok, _ := store.Get(context.Background())
	assert.Empty(t, tok)
}

func TestSend_ConcurrentUnauthorizedLeavesStoreEmpty(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "expired", nil)
	})
	require.NoError(t, h.store.Set(context.Background(), "tok"))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)
			assert.ErrorIs(t, err, ErrAuthentication)
		}()
	}
	wg.Wait()

	tok, _ := h.store.Get(context.Background())
	assert.Empty(t, tok)
}

// =============================================================================
// TRANSPORT FAILURES
// =============================================================================

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	h.client.WithTimeout(50 * time.Millisecond)

	_, err := h.client.Send(context.Background(), http.MethodGet, "/slow", nil, nil)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []notice.Key{notice.KeyTimeout}, h.notices.Keys())
}

func TestSend_NetworkError(t *testing.T) {
	h := newHarness(t, ok(nil))
	h.server.Close()

	_, err := h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, []notice.Key{notice.KeyNetworkError}, h.notices.Keys())
}

func TestSend_QuietSuppressesNotice(t *testing.T) {
	h := newHarness(t, ok(nil))
	h.server.Close()

	_, err := h.client.Send(Quiet(context.Background()), http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.Empty(t, h.notices.Notices())
}

func TestSend_QuietStillLogsOutOnUnauthorized(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "expired", nil)
	})
	require.NoError(t, h.store.Set(context.Background(), "tok"))

	_, err := h.client.Send(Quiet(context.Background()), http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, int32(1), h.deauth.calls.Load())
	assert.Equal(t, []notice.Key{notice.KeySessionExpired}, h.notices.Keys())
}

func TestSend_CallerCancelIsSilent(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := h.client.Send(ctx, http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, h.notices.Notices())
}

func TestSend_NoRetries(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, int32(1), h.hits.Load())
}

func TestSend_ResponseTooLarge(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	})
	h.client.WithMaxResponseSize(1024)

	_, err := h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestSend_RateLimit(t *testing.T) {
	h := newHarness(t, ok(nil))
	h.client.WithRateLimit(20, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSend_RateLimitWaitCountsTowardTimeout(t *testing.T) {
	h := newHarness(t, ok(nil))
	h.client.WithRateLimit(0.5, 1).WithTimeout(100 * time.Millisecond)

	_, err := h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = h.client.Send(context.Background(), http.MethodGet, "/x", nil, nil)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), h.hits.Load())
	assert.Equal(t, []notice.Key{notice.KeyTimeout}, h.notices.Keys())
}

// =============================================================================
// ERROR TYPE
// =============================================================================

func TestError_IsAndKindOf(t *testing.T) {
	err := error(&Error{Kind: KindPermission, Status: 403, Method: "GET", Path: "/v1/users"})
	wrapped := errors.Join(errors.New("listing users"), err)

	assert.ErrorIs(t, wrapped, ErrPermission)
	assert.NotErrorIs(t, wrapped, ErrNotFound)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindPermission, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)

	assert.Equal(t, "permission error GET /v1/users (HTTP 403)", err.Error())
}
