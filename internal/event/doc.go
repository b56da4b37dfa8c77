// Package event provides a synchronous pub-sub bus and the typed events the
// pool publishes as it runs: task lifecycle, unit lifecycle, scaling
// decisions, and pool state changes. Observers such as the CLI dashboard and
// the structured logger subscribe to the bus instead of holding a reference
// to the pool itself.
package event
