/*
Package observability turns host lifecycle events into Prometheus metrics and log lines.

Metrics.Hooks and Combine produce domain.LifecycleHooks for mosaic.WithLifecycleHooks.
LoggingHookSet is a hook set that only logs, for applications that have nothing
else to do around their lifecycle.
*/
package observability
