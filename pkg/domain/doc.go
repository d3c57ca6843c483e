/*
Package domain contains the core models of the mosaic host.

It defines the declared applications, the lifecycle hook sets they export, the
manifest contract consumed on first activation, and the events emitted while the
host moves from one mounted application to the next. The package holds no I/O:
fetching, script execution and persistence live behind the interfaces in ports.

# Key Entities

  - Application: one independently loadable front-end unit, owning a URL range.
  - HookSet: the eight lifecycle hooks an application exports, invoked in order.
  - Manifest: what a module loader yields for an application on first activation.
  - Snapshot: the persisted view of a session (URL, history, mounted application).
*/
package domain
