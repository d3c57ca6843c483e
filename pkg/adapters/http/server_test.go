package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/mosaic"
	mhttp "github.com/aretw0/mosaic/pkg/adapters/http"
	"github.com/aretw0/mosaic/pkg/adapters/memory"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/routes"
	"github.com/aretw0/mosaic/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shell struct {
	server  *httptest.Server
	store   *memory.Store
	modules *memory.Modules
}

func newShell(t *testing.T) *shell {
	t.Helper()
	sh := &shell{store: memory.NewStore(), modules: memory.NewModules()}
	indexes := memory.NewIndexes()
	for _, loc := range []string{"users", "orders", "dup-a", "dup-b"} {
		sh.modules.Add(loc, &domain.Manifest{PublicRoot: loc, PathToIndex: "index.html", Lifecycles: domain.SingleHookSet(domain.NoopHooks())})
		indexes.Add(loc, "index.html", "<p>"+loc+"</p>")
	}
	sh.modules.Add("broken", &domain.Manifest{PublicRoot: "broken", PathToIndex: "index.html", Lifecycles: domain.SingleHookSet(domain.NoopHooks())})

	factory := func(ctx context.Context, id string) (*mosaic.Host, error) {
		host, err := mosaic.New(
			mosaic.WithModuleLoader(sh.modules),
			mosaic.WithIndexFetcher(indexes),
			mosaic.WithScriptRunner(memory.NewScripts()),
			mosaic.WithInitialURL("http://shell.test/"),
			mosaic.WithSessionID(id),
			mosaic.WithStore(sh.store),
		)
		if err != nil {
			return nil, err
		}
		decls := map[string]domain.ActivationFunc{
			"users":  routes.PathPrefix("/users"),
			"orders": routes.PathPrefix("/orders"),
			"dup-a":  routes.PathPrefix("/dup"),
			"dup-b":  routes.PathPrefix("/dup"),
			"broken": routes.PathPrefix("/broken"),
		}
		for _, loc := range []string{"users", "orders", "dup-a", "dup-b", "broken"} {
			if _, err := host.Declare(ctx, loc, decls[loc]); err != nil {
				return nil, err
			}
		}
		return host, nil
	}

	sh.server = httptest.NewServer(mhttp.NewHandler(session.NewManager(sh.store), factory))
	t.Cleanup(sh.server.Close)
	return sh
}

func (sh *shell) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, sh.server.URL+path, rd)
	require.NoError(t, err)
	resp, err := sh.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (sh *shell) create(t *testing.T) mhttp.StateResponse {
	t.Helper()
	resp, body := sh.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var state mhttp.StateResponse
	require.NoError(t, json.Unmarshal(body, &state))
	return state
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestShell_SessionLifecycle(t *testing.T) {
	sh := newShell(t)
	created := sh.create(t)
	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, "http://shell.test/", created.URL)
	assert.Empty(t, created.Mounted)

	base := "/sessions/" + created.SessionID

	resp, body := sh.do(t, http.MethodPost, base+"/navigate", mhttp.NavigateRequest{URL: "/users/7"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	state := decode[mhttp.StateResponse](t, body)
	assert.Equal(t, domain.OutcomeMounted, state.Outcome)
	assert.Equal(t, "users", state.Mounted)

	resp, body = sh.do(t, http.MethodGet, base+"/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "<p>users</p>")

	resp, body = sh.do(t, http.MethodPost, base+"/navigate", mhttp.NavigateRequest{URL: "/orders"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "orders", decode[mhttp.StateResponse](t, body).Mounted)

	resp, body = sh.do(t, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decode[mhttp.StateResponse](t, body)
	assert.Equal(t, "users", state.Mounted)
	assert.Equal(t, "http://shell.test/users/7", state.URL)

	resp, body = sh.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"http://shell.test/", "http://shell.test/users/7"}, decode[mhttp.StateResponse](t, body).History)

	snap, err := sh.store.Load(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "users", snap.Mounted)

	resp, _ = sh.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = sh.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShell_NavigationErrors(t *testing.T) {
	sh := newShell(t)
	base := "/sessions/" + sh.create(t).SessionID

	resp, body := sh.do(t, http.MethodPost, base+"/navigate", mhttp.NavigateRequest{URL: "/nowhere"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[mhttp.StateResponse](t, body)
	assert.True(t, state.Unhandled)
	assert.Equal(t, domain.OutcomeUnhandled, state.Outcome)

	resp, body = sh.do(t, http.MethodPost, base+"/navigate", mhttp.NavigateRequest{URL: "/dup"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, []string{"dup-a", "dup-b"}, decode[mhttp.ErrorResponse](t, body).Locations)

	resp, body = sh.do(t, http.MethodPost, base+"/navigate", mhttp.NavigateRequest{URL: "/broken"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, string(domain.PhaseLoad), decode[mhttp.ErrorResponse](t, body).Phase)

	resp, _ = sh.do(t, http.MethodPost, base+"/navigate", map[string]string{"href": "/users"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fresh := "/sessions/" + sh.create(t).SessionID
	resp, _ = sh.do(t, http.MethodPost, fresh+"/back", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = sh.do(t, http.MethodGet, "/sessions/unknown/document", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShell_ResumesSessionsFromTheStore(t *testing.T) {
	sh := newShell(t)
	id := "from-another-replica"
	snap := domain.NewSnapshot(id, "http://shell.test/")
	snap.URL = "http://shell.test/orders/1"
	snap.History = append(snap.History, snap.URL)
	require.NoError(t, sh.store.Save(context.Background(), id, snap))

	resp, body := sh.do(t, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	state := decode[mhttp.StateResponse](t, body)
	assert.Equal(t, "orders", state.Mounted)
	assert.Equal(t, snap.History, state.History)
}

func TestShell_FactoryErrorIsInternal(t *testing.T) {
	failing := func(context.Context, string) (*mosaic.Host, error) { return nil, errors.New("no modules") }
	srv := httptest.NewServer(mhttp.NewHandler(session.NewManager(memory.NewStore()), failing))
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestShell_UpdateApplicationSource(t *testing.T) {
	sh := newShell(t)
	base := "/sessions/" + sh.create(t).SessionID

	resp, _ := sh.do(t, http.MethodPost, base+"/applications/ghost/update", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = sh.do(t, http.MethodPost, base+"/applications/users/update", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "never loaded")

	resp, _ = sh.do(t, http.MethodPost, base+"/navigate", mhttp.NavigateRequest{URL: "/users"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := sh.do(t, http.MethodPost, base+"/applications/users/update", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "users", decode[mhttp.StateResponse](t, body).Mounted)
}
