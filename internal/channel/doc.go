// Package channel owns the connect/send/receive/close lifecycle of one framed
// exchange with the remote daemon socket.
//
// A Channel is created by Dial, used for a single request and response, and
// released with a deferred Close. It never reconnects on its own; retries are
// the query driver's job and always use a fresh Channel. All failures are
// classified with the services.Kind taxonomy.
package channel
