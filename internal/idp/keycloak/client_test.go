package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedya-eremin/ms-ws/internal/config"
	"github.com/fedya-eremin/ms-ws/internal/idp"
)

const (
	testRealm = "broker"
	testToken = "admin-access-token"

	// publicIssuer is what Keycloak advertises when KC_HOSTNAME points at a
	// host the proxy cannot reach.
	publicIssuer = "http://localhost:8090/realms/" + testRealm
)

// fakeKeycloak serves discovery, the token endpoint and the users admin API
// for one realm. Discovery advertises publicIssuer, not the server's own
// URL. users maps id to the raw JSON representation.
type fakeKeycloak struct {
	srv            *httptest.Server
	users          map[string]string
	tokenCalls     atomic.Int32
	discoveryCalls atomic.Int32
}

func newFakeKeycloak(t *testing.T, users map[string]string) *fakeKeycloak {
	t.Helper()
	fk := &fakeKeycloak{users: users}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /realms/"+testRealm+"/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		fk.discoveryCalls.Add(1)
		issuer := publicIssuer
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 issuer,
			"token_endpoint":         issuer + "/protocol/openid-connect/token",
			"authorization_endpoint": issuer + "/protocol/openid-connect/auth",
			"jwks_uri":               issuer + "/protocol/openid-connect/certs",
		})
	})

	mux.HandleFunc("POST /realms/"+testRealm+"/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		fk.tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "password" ||
			r.Form.Get("client_id") != "event-proxy" ||
			r.Form.Get("client_secret") != "s3cret" ||
			r.Form.Get("username") != "admin" ||
			r.Form.Get("password") != "admin-pass" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + testToken + `","token_type":"Bearer","expires_in":60}`))
	})

	mux.HandleFunc("GET /admin/realms/"+testRealm+"/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		rep, ok := fk.users[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"User not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rep))
	})

	fk.srv = httptest.NewServer(mux)
	t.Cleanup(fk.srv.Close)
	return fk
}

func (fk *fakeKeycloak) config() config.KeycloakConfig {
	return config.KeycloakConfig{
		BaseURL:       fk.srv.URL,
		Realm:         testRealm,
		ClientID:      "event-proxy",
		ClientSecret:  "s3cret",
		AdminUsername: "admin",
		AdminPassword: "admin-pass",
	}
}

func TestClient_FindUser(t *testing.T) {
	fk := newFakeKeycloak(t, map[string]string{
		"u1":      `{"id":"u1","username":"alice","firstName":"Alice","lastName":"A","enabled":true}`,
		"partial": `{"id":"partial","username":"carol"}`,
	})
	c := NewClient(fk.config(), WithHTTPClient(fk.srv.Client()))
	ctx := context.Background()

	session, err := c.Authenticate(ctx)
	require.NoError(t, err)

	t.Run("full representation", func(t *testing.T) {
		user, err := session.FindUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, &idp.User{ID: "u1", Username: "alice", FirstName: "Alice", LastName: "A", Enabled: true}, user)
	})

	t.Run("absent attributes are defaulted", func(t *testing.T) {
		user, err := session.FindUser(ctx, "partial")
		require.NoError(t, err)
		assert.Equal(t, "carol", user.Username)
		assert.Empty(t, user.FirstName)
		assert.Empty(t, user.LastName)
		assert.False(t, user.Enabled)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := session.FindUser(ctx, "ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, idp.ErrUserNotFound)
	})
}

func TestClient_AuthenticateCreatesFreshSessions(t *testing.T) {
	fk := newFakeKeycloak(t, nil)
	c := NewClient(fk.config(), WithHTTPClient(fk.srv.Client()))

	_, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	_, err = c.Authenticate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), fk.tokenCalls.Load())
}

func TestClient_UsesBaseURLBehindPublicHostname(t *testing.T) {
	fk := newFakeKeycloak(t, map[string]string{
		"u1": `{"id":"u1","username":"alice","enabled":true}`,
	})
	c := NewClient(fk.config(), WithHTTPClient(fk.srv.Client()))
	ctx := context.Background()

	session, err := c.Authenticate(ctx)
	require.NoError(t, err)

	user, err := session.FindUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int32(1), fk.tokenCalls.Load())
	assert.Equal(t, int32(0), fk.discoveryCalls.Load(), "advertised endpoints are not consulted")
}

func TestClient_AuthenticateBadCredentials(t *testing.T) {
	fk := newFakeKeycloak(t, nil)
	cfg := fk.config()
	cfg.AdminPassword = "wrong"
	c := NewClient(cfg, WithHTTPClient(fk.srv.Client()))

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, idp.ErrAuthentication)
}

func TestClient_AuthenticateUnknownRealm(t *testing.T) {
	fk := newFakeKeycloak(t, nil)
	cfg := fk.config()
	cfg.Realm = "missing"
	c := NewClient(cfg, WithHTTPClient(fk.srv.Client()))

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, idp.ErrAuthentication)
	assert.Equal(t, int32(0), fk.tokenCalls.Load())
}

func TestParseUser(t *testing.T) {
	_, err := parseUser("x", []byte(`not json`))
	assert.Error(t, err)

	_, err = parseUser("x", []byte(`{"firstName":"NoUsername"}`))
	assert.Error(t, err)

	user, err := parseUser("x", []byte(`{"username":"dave","enabled":false,"firstName":null}`))
	require.NoError(t, err)
	assert.Equal(t, "dave", user.Username)
	assert.Empty(t, user.FirstName)
	assert.False(t, user.Enabled)
}
