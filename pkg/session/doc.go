/*
Package session serializes access to shell sessions and their snapshots.

Every operation on a session runs under WithLock: a per-process mutex, reference
counted so idle sessions leave nothing behind, and optionally a distributed lock
so that replicas sharing one snapshot store do not interleave navigations.
*/
package session
