// Package history persists the outcome of every archeck run in SQLite.
//
// One row per run records the endpoint and the success/failure counts; one
// row per agent records the terminal state, the attempts used, the decoded
// status and body, and the classified error. "archeck history" reads it back
// to show when an agent last answered or why it did not.
//
// The database lives under the state directory unless [history] path says
// otherwise. A schema version row guards against opening a file written by an
// incompatible build.
package history
