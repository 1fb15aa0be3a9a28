// Package frame implements the length-prefixed framing spoken by the manager's
// remote daemon socket.
//
// A frame is a 4-byte little-endian unsigned length followed by exactly that
// many payload bytes. There is no checksum or terminator, so the reader relies
// on the prefix alone; Limits caps the prefix so a corrupt peer cannot force an
// unbounded allocation.
package frame
