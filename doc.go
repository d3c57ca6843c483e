/*
Package mosaic composes independently built web applications into a single page.

Each application is declared with a location and an activation predicate. The
host watches its URL and keeps exactly one application mounted: the one whose
predicate owns the URL. On first activation an application's module is imported,
its manifest validated, its index document fetched and its scripts run one at a
time. Mounting grafts a fresh copy of that document onto the live page.

# Concept

The host owns the live document. Applications only see it through their
lifecycle hooks, which run in a fixed order around each transition:

	scriptsWillBeLoaded, scriptsWereLoaded          (first activation only)
	applicationWillMount, applicationWasMounted
	applicationWillUnmount, applicationWasUnmounted
	activeApplicationSourceWillUpdate, activeApplicationSourceWasUpdated

Collaborators such as module loading, index fetching and script execution are
ports, so the host runs the same way against in-memory fakes, files on disk or
an HTTP origin.

# Usage

	host, err := mosaic.New(
		mosaic.WithModuleLoader(modules),
		mosaic.WithIndexFetcher(indexes),
		mosaic.WithScriptRunner(scripts),
		mosaic.WithInitialURL("http://localhost:8080/"),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := host.Declare(ctx, "users", routes.PathPrefix("/users")); err != nil {
		log.Fatal(err)
	}
	if _, err := host.Navigate(ctx, "/users/42"); err != nil {
		log.Fatal(err)
	}
	host.Render(os.Stdout)

A URL that two applications claim is refused with a *domain.ConflictError. A URL
nobody claims leaves the page as it is and notifies every handler registered with
AddUnhandledRouteHandler.
*/
package mosaic
