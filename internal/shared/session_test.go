package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "movevote_session", time.Hour, false)
}

func commitAndExtractCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, sess.User())

	sess.SetUser(SessionUser{UserID: "u1", DiscordID: "d1", Username: "alice", Roles: []string{"member"}})
	cookie := commitAndExtractCookie(t, sm, sess)
	require.Equal(t, "movevote_session", cookie.Name)
	require.True(t, cookie.HttpOnly)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	restored, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	require.NotNil(t, restored.User())
	require.Equal(t, "alice", restored.User().Username)
	require.Equal(t, []string{"member"}, restored.User().Roles)
}

func TestDestroyClearsSession(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser(SessionUser{UserID: "u1", DiscordID: "d1", Username: "alice"})
	cookie := commitAndExtractCookie(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	restored, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Destroy(restored)

	expired := commitAndExtractCookie(t, sm, restored)
	require.Equal(t, -1, expired.MaxAge)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	fresh, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	require.Nil(t, fresh.User())
}

func TestOAuthStateSingleUse(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetOAuthState("state-123")
	cookie := commitAndExtractCookie(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	restored, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "state-123", restored.PopOAuthState())
	require.Empty(t, restored.PopOAuthState())
}

func TestExpiredRedisEntryYieldsAnonymousSession(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser(SessionUser{UserID: "u1", DiscordID: "d1", Username: "alice"})
	cookie := commitAndExtractCookie(t, sm, sess)

	// Drop the backing entry: the cookie alone must not authenticate.
	require.NoError(t, sm.client.Del(ctx, sm.redisKey(sess.ID)).Err())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	restored, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, restored.User())
}
