/*
Package ports defines the driven ports (interfaces) of the mosaic host.

These interfaces decouple the orchestration core from the page it drives, so the
same host can run against a browser bridge, an HTTP-backed shell, or in-memory fakes.

# Key Interfaces

  - ModuleLoader: Imports an application's manifest on first activation.
  - IndexFetcher: Fetches the index document an application is built from.
  - ScriptRunner: Executes a script element inserted into the live document.
  - SnapshotStore: Persists the session snapshot after each settled transition.
  - DistributedLocker: Coordinates access to a session across replicas.
*/
package ports
