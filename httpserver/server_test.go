package httpserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/package-registry/cryptoutils"
	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRoutes struct{}

func (echoRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/echo/{word}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chi.URLParam(r, "word")))
	})
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("root"))
	})
}

func testConfig(admin *AdminHandler) *HTTPServerConfig {
	return &HTTPServerConfig{
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Admin:                    admin,
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}
}

func get(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerRoutes(t *testing.T) {
	srv, err := New(testConfig(nil), echoRoutes{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, body := get(t, ts.URL+"/api/v1/echo/carol")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "carol", body)

	status, body = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "root", body)

	status, _ = get(t, ts.URL+"/livez")
	assert.Equal(t, http.StatusOK, status)
	status, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestServerDrain(t *testing.T) {
	srv, err := New(testConfig(nil), echoRoutes{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, body := get(t, ts.URL+"/drain")
	assert.JSONEq(t, `{"status":"draining"}`, body)
	_, body = get(t, ts.URL+"/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	status, _ := get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	_, body = get(t, ts.URL+"/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, body)
	status, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestServerWithoutRoutes(t *testing.T) {
	srv, err := New(testConfig(nil))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, _ := get(t, ts.URL+"/api/v1/echo/carol")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = get(t, ts.URL+"/livez")
	assert.Equal(t, http.StatusOK, status)

	srv.SetRoutes(echoRoutes{})
	status, body := get(t, ts.URL+"/api/v1/echo/dave")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dave", body)
}

type admin struct {
	id string
	kp *cryptoutils.Keypair
}

func newAdmins(t *testing.T, n int) ([]admin, map[string]interfaces.PublicKey) {
	admins := make([]admin, n)
	keys := make(map[string]interfaces.PublicKey, n)
	for i := range admins {
		kp, err := cryptoutils.GenerateKeypair()
		require.NoError(t, err)
		admins[i] = admin{id: string(rune('a' + i)), kp: kp}
		keys[admins[i].id] = kp.PublicKey()
	}
	return admins, keys
}

func submitShare(t *testing.T, baseURL string, a admin, share []byte, sign bool) (int, string) {
	body, err := json.Marshal(map[string]string{"share": hex.EncodeToString(share)})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/admin/share", bytes.NewReader(body))
	require.NoError(t, err)
	if sign {
		require.NoError(t, SignAdminRequest(req, a.id, a.kp, body))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(respBody)
}

func TestAdminUnlock(t *testing.T) {
	oracleKey, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)
	shares, err := kms.SplitKeypair(oracleKey, 3, 2)
	require.NoError(t, err)

	admins, keys := newAdmins(t, 3)
	handler, err := NewAdminHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), keys, oracleKey.PublicKey(), 2)
	require.NoError(t, err)

	srv, err := New(testConfig(handler))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, _ := submitShare(t, ts.URL, admins[0], shares[0], false)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = submitShare(t, ts.URL, admins[0], shares[0], true)
	assert.Equal(t, http.StatusOK, status)

	status, body := submitShare(t, ts.URL, admins[0], shares[1], true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "already submitted")

	_, body = get(t, ts.URL+"/admin/status")
	assert.JSONEq(t, `{"state":"locked","threshold":2,"submitted":1}`, body)

	status, _ = submitShare(t, ts.URL, admins[1], shares[2], true)
	assert.Equal(t, http.StatusOK, status)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	recovered, err := handler.WaitForUnlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, oracleKey.PublicKey(), recovered.PublicKey())

	_, body = get(t, ts.URL+"/admin/status")
	assert.Contains(t, body, `"unlocked"`)
}

func TestAdminUnlockWrongKey(t *testing.T) {
	oracleKey, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)
	other, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)
	shares, err := kms.SplitKeypair(other, 2, 2)
	require.NoError(t, err)

	admins, keys := newAdmins(t, 2)
	handler, err := NewAdminHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), keys, oracleKey.PublicKey(), 2)
	require.NoError(t, err)

	srv, err := New(testConfig(handler))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, _ := submitShare(t, ts.URL, admins[0], shares[0], true)
	assert.Equal(t, http.StatusOK, status)
	status, body := submitShare(t, ts.URL, admins[1], shares[1], true)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "does not match")

	_, body = get(t, ts.URL+"/admin/status")
	assert.JSONEq(t, `{"state":"locked","threshold":2,"submitted":0}`, body)
}

func TestLoadAdminKeys(t *testing.T) {
	kp, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)

	keys, err := LoadAdminKeys(strings.NewReader(`{"admins":[{"id":"alice","pubkey":"` + kp.PublicKey().String() + `"}]}`))
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), keys["alice"])

	_, err = LoadAdminKeys(strings.NewReader(`{"admins":[{"id":"alice","pubkey":"x"}]}`))
	assert.Error(t, err)
}

func TestAdminClient(t *testing.T) {
	oracleKey, err := cryptoutils.GenerateKeypair()
	require.NoError(t, err)
	shares, err := kms.SplitKeypair(oracleKey, 2, 2)
	require.NoError(t, err)

	admins, keys := newAdmins(t, 2)
	handler, err := NewAdminHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), keys, oracleKey.PublicKey(), 2)
	require.NoError(t, err)

	srv, err := New(testConfig(handler))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx := context.Background()
	status, err := NewAdminClient(ts.URL+"/admin", "", nil).Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdminStatus{State: "locked", Threshold: 2}, *status)

	assert.Error(t, NewAdminClient(ts.URL+"/admin", admins[0].id, nil).SubmitShare(ctx, shares[0]))

	// Signed with the wrong admin key.
	err = NewAdminClient(ts.URL+"/admin", admins[0].id, admins[1].kp).SubmitShare(ctx, shares[0])
	assert.ErrorContains(t, err, "401")

	for i, a := range admins {
		require.NoError(t, NewAdminClient(ts.URL+"/admin/", a.id, a.kp).SubmitShare(ctx, shares[i]))
	}

	status, err = NewAdminClient(ts.URL+"/admin", "", nil).Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "unlocked", status.State)
}
