package mosaic_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/mosaic"
	"github.com/aretw0/mosaic/internal/testutils"
	"github.com/aretw0/mosaic/pkg/adapters/memory"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type fixture struct {
	rec     *testutils.Recorder
	modules *memory.Modules
	indexes *memory.Indexes
	scripts *memory.Scripts
}

func newFixture(locations ...string) *fixture {
	f := &fixture{
		rec:     testutils.NewRecorder(),
		modules: memory.NewModules(),
		indexes: memory.NewIndexes(),
		scripts: memory.NewScripts(),
	}
	for _, loc := range locations {
		f.add(loc, f.rec.HookSet(loc))
	}
	return f
}

func (f *fixture) add(location string, hs domain.HookSet) {
	f.modules.Add(location, &domain.Manifest{
		PublicRoot:  location,
		PathToIndex: "index.html",
		Lifecycles:  domain.SingleHookSet(hs),
	})
	f.indexes.Add(location, "index.html", `<html><body><main>`+location+`</main></body></html>`)
}

func (f *fixture) host(t *testing.T, opts ...mosaic.Option) *mosaic.Host {
	t.Helper()
	base := []mosaic.Option{
		mosaic.WithModuleLoader(f.modules),
		mosaic.WithIndexFetcher(f.indexes),
		mosaic.WithScriptRunner(f.scripts),
		mosaic.WithInitialURL("http://localhost:8080/"),
	}
	h, err := mosaic.New(append(base, opts...)...)
	require.NoError(t, err)
	return h
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := mosaic.New()
	assert.ErrorContains(t, err, "module loader")

	_, err = mosaic.New(mosaic.WithModuleLoader(memory.NewModules()))
	assert.ErrorContains(t, err, "index fetcher")

	_, err = mosaic.New(mosaic.WithModuleLoader(memory.NewModules()), mosaic.WithIndexFetcher(memory.NewIndexes()))
	assert.ErrorContains(t, err, "script runner")

	_, err = mosaic.New(
		mosaic.WithModuleLoader(memory.NewModules()),
		mosaic.WithIndexFetcher(memory.NewIndexes()),
		mosaic.WithScriptRunner(memory.NewScripts()),
		mosaic.WithInitialURL("/relative"),
	)
	assert.ErrorContains(t, err, "must be absolute")
}

func TestHost_DeclareMountsOwnerOfCurrentURL(t *testing.T) {
	f := newFixture("home", "users")
	h := f.host(t, mosaic.WithInitialURL("http://localhost:8080/users/1"))
	ctx := context.Background()

	_, err := h.Declare(ctx, "home", routes.Exact("/"))
	require.NoError(t, err)
	assert.Nil(t, h.Mounted())

	users, err := h.Declare(ctx, "users", routes.PathPrefix("/users"))
	require.NoError(t, err)
	assert.Same(t, users, h.Mounted())
	assert.Len(t, h.Applications(), 2)

	var buf strings.Builder
	require.NoError(t, h.Render(&buf))
	assert.Contains(t, buf.String(), "<main>users</main>")
}

func TestHost_DeclareReportsConflictAfterRegistering(t *testing.T) {
	f := newFixture("a", "b")
	h := f.host(t, mosaic.WithInitialURL("http://localhost:8080/shared"))
	ctx := context.Background()

	_, err := h.Declare(ctx, "a", routes.PathPrefix("/shared"))
	require.NoError(t, err)

	app, err := h.Declare(ctx, "b", routes.PathPrefix("/shared"))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NotNil(t, app, "declaration itself succeeded")
	assert.Equal(t, "a", h.Mounted().Location)

	_, err = h.Declare(ctx, "b", routes.PathPrefix("/other"))
	assert.ErrorIs(t, err, domain.ErrDuplicateLocation)
}

func TestHost_NavigateResolvesRelativeURLsAndRecordsHistory(t *testing.T) {
	f := newFixture("a", "b")
	h := f.host(t)
	ctx := context.Background()
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	_, err = h.Declare(ctx, "b", routes.PathPrefix("/b"))
	require.NoError(t, err)

	outcome, err := h.Navigate(ctx, "/a/list")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMounted, outcome)

	outcome, err = h.Navigate(ctx, "detail?id=3")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, outcome)
	assert.Equal(t, "/a/detail", h.URL().Path)

	_, err = h.Navigate(ctx, "http://localhost:8080/b")
	require.NoError(t, err)
	assert.Equal(t, "b", h.Mounted().Location)

	assert.Equal(t, []string{
		"http://localhost:8080/",
		"http://localhost:8080/a/list",
		"http://localhost:8080/a/detail?id=3",
		"http://localhost:8080/b",
	}, h.History())
}

func TestHost_NavigateTo(t *testing.T) {
	f := newFixture("a")
	h := f.host(t)
	ctx := context.Background()
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)

	anchor := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A,
		Attr: []html.Attribute{{Key: "href", Val: "/a/from-link"}}}
	outcome, err := h.NavigateTo(ctx, anchor)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMounted, outcome)
	assert.Equal(t, "/a/from-link", h.URL().Path)

	_, err = h.NavigateTo(ctx, &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span})
	assert.ErrorContains(t, err, "no href")
	_, err = h.NavigateTo(ctx, nil)
	assert.Error(t, err)
}

func TestHost_BackAndChangeHashReachMountedListeners(t *testing.T) {
	f := newFixture("b")
	var got []string
	hs := f.rec.HookSet("a")
	hs[domain.HookScriptsWereLoaded] = func(_ context.Context, p domain.Props) error {
		p.Listeners.AddListener(domain.EventPopState, func(_ context.Context, ev *domain.NavigationEvent) {
			got = append(got, "popstate "+ev.URL.Path)
		})
		p.Listeners.AddListener(domain.EventHashChange, func(_ context.Context, ev *domain.NavigationEvent) {
			got = append(got, "hashchange "+ev.URL.Fragment)
		})
		return nil
	}
	f.add("a", hs)

	h := f.host(t)
	ctx := context.Background()
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	_, err = h.Declare(ctx, "b", routes.PathPrefix("/b"))
	require.NoError(t, err)

	var global []domain.EventKind
	h.AddListener(domain.EventPopState, func(_ context.Context, ev *domain.NavigationEvent) {
		global = append(global, ev.Kind)
	})

	_, err = h.Navigate(ctx, "/a/one")
	require.NoError(t, err)
	_, err = h.Navigate(ctx, "/a/two")
	require.NoError(t, err)

	outcome, err := h.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDispatched, outcome)

	outcome, err = h.ChangeHash(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDispatched, outcome)
	assert.Equal(t, "settings", h.URL().Fragment)

	assert.Equal(t, []string{"popstate /a/one", "hashchange settings"}, got)
	assert.Equal(t, []domain.EventKind{domain.EventPopState}, global)

	// Back across applications remounts rather than dispatching.
	_, err = h.Navigate(ctx, "/b")
	require.NoError(t, err)
	outcome, err = h.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMounted, outcome)
	assert.Equal(t, "a", h.Mounted().Location)
}

func TestHost_BackWithoutHistory(t *testing.T) {
	h := newFixture().host(t)
	_, err := h.Back(context.Background())
	assert.ErrorIs(t, err, mosaic.ErrNoHistory)
}

func TestHost_PersistsAndResumes(t *testing.T) {
	f := newFixture("a")
	store := memory.NewStore()
	ctx := context.Background()

	h := f.host(t, mosaic.WithStore(store), mosaic.WithSessionID("s-1"))
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	_, err = h.Navigate(ctx, "/a/orders")
	require.NoError(t, err)

	snap, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/a/orders", snap.URL)
	assert.Equal(t, "a", snap.Mounted)
	assert.Len(t, snap.History, 2)

	resumed := newFixture("a").host(t, mosaic.WithStore(store), mosaic.WithSessionID("s-1"))
	_, err = resumed.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	assert.Nil(t, resumed.Mounted())

	outcome, err := resumed.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMounted, outcome)
	assert.Equal(t, "/a/orders", resumed.URL().Path)
	assert.Equal(t, snap.History, resumed.History())

	_, err = f.host(t, mosaic.WithStore(store), mosaic.WithSessionID("unknown")).Resume(ctx)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	_, err = f.host(t).Resume(ctx)
	assert.Error(t, err)
}

func TestHost_UnhandledHandlerCanRedirectAsynchronously(t *testing.T) {
	f := newFixture("home")
	h := f.host(t)
	ctx := context.Background()
	_, err := h.Declare(ctx, "home", routes.PathPrefix("/home"))
	require.NoError(t, err)

	redirected := make(chan error, 1)
	require.NoError(t, h.AddUnhandledRouteHandler(func(ctx context.Context, _ *domain.Application, u *url.URL) {
		if u.Path == "/missing" {
			go func() {
				_, err := h.Navigate(context.Background(), "/home")
				redirected <- err
			}()
		}
	}))

	outcome, err := h.Navigate(ctx, "/missing")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnhandled, outcome)

	select {
	case err := <-redirected:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("redirect did not complete")
	}
	assert.Equal(t, "home", h.Mounted().Location)
}

func TestHost_UpdateApplicationSourceCode(t *testing.T) {
	f := newFixture("a")
	h := f.host(t)
	ctx := context.Background()

	err := h.UpdateApplicationSourceCode(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)

	_, err = h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	assert.ErrorIs(t, h.UpdateApplicationSourceCode(ctx, "a"), domain.ErrApplicationNotLoaded)

	_, err = h.Navigate(ctx, "/a")
	require.NoError(t, err)
	f.rec.Reset()
	require.NoError(t, h.UpdateApplicationSourceCode(ctx, "a"))
	assert.Equal(t, []string{"a:activeApplicationSourceWillUpdate", "a:activeApplicationSourceWasUpdated"}, f.rec.Calls())
}

func TestHost_ListenerCanNavigate(t *testing.T) {
	f := newFixture("b")
	hs := f.rec.HookSet("a")
	var h *mosaic.Host
	hs[domain.HookScriptsWereLoaded] = func(_ context.Context, p domain.Props) error {
		p.Listeners.AddListener(domain.EventHashChange, func(ctx context.Context, ev *domain.NavigationEvent) {
			if ev.URL.Fragment == "leave" {
				_, err := h.Navigate(ctx, "/b")
				assert.NoError(t, err)
			}
		})
		return nil
	}
	f.add("a", hs)

	h = f.host(t)
	ctx := context.Background()
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	_, err = h.Declare(ctx, "b", routes.PathPrefix("/b"))
	require.NoError(t, err)
	_, err = h.Navigate(ctx, "/a")
	require.NoError(t, err)

	done := make(chan domain.Outcome, 1)
	go func() {
		outcome, err := h.ChangeHash(ctx, "leave")
		assert.NoError(t, err)
		done <- outcome
	}()

	select {
	case outcome := <-done:
		assert.Equal(t, domain.OutcomeDispatched, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("ChangeHash did not return")
	}
	assert.Equal(t, "b", h.Mounted().Location)
	assert.Equal(t, "http://localhost:8080/b", h.History()[len(h.History())-1])
}

func TestHost_ChangeHashToSameFragmentIsUnchanged(t *testing.T) {
	f := newFixture("a")
	h := f.host(t, mosaic.WithInitialURL("http://localhost:8080/a#top"))
	ctx := context.Background()
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)

	calls := 0
	h.AddListener(domain.EventHashChange, func(context.Context, *domain.NavigationEvent) { calls++ })

	outcome, err := h.ChangeHash(ctx, "top")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, outcome)
	assert.Len(t, h.History(), 1)
	assert.Zero(t, calls)
}

func TestHost_ApplicationsDuringNavigation(t *testing.T) {
	f := newFixture("a", "b")
	h := f.host(t)
	ctx := context.Background()
	_, err := h.Declare(ctx, "a", routes.PathPrefix("/a"))
	require.NoError(t, err)
	_, err = h.Declare(ctx, "b", routes.PathPrefix("/b"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			target := "/a"
			if i%2 == 1 {
				target = "/b"
			}
			_, err := h.Navigate(ctx, target)
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 50; i++ {
		for _, app := range h.Applications() {
			if app.Mounted {
				assert.True(t, app.ScriptsLoaded, app.Location)
				assert.NotEmpty(t, app.PublicRoot, app.Location)
			}
		}
	}
	wg.Wait()

	apps := h.Applications()
	require.Len(t, apps, 2)
	assert.True(t, apps[1].Mounted)
	assert.Equal(t, "b", apps[1].Location)
}
