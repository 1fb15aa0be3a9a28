// Package arquery drives active-response configuration queries against the
// manager's remote daemon.
//
// For every agent identifier the Driver builds a request of the form
// "<id> com getconfig active-response", exchanges it over a freshly dialed
// channel and splits the reply into a status token and a body. Identifiers
// are processed one at a time, in order. Each one walks an explicit state
// machine (pending, attempting, waiting, succeeded, failed) with a bounded
// number of attempts and a fixed pause between them; transitions are pushed
// to a Reporter so the CLI can render progress while the batch runs.
//
// Connection, I/O, and "agent unreachable" failures are retried. Decode
// failures and misuse of a closed channel end the identifier immediately.
// A failure never aborts the batch.
package arquery
