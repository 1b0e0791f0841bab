// Package client is the line-protocol client for realmchat servers.
//
// A Client owns one TCP connection and runs one request at a time: it writes
// a request line and reads until the response terminator. The federation link
// uses it to relay messages to a peer realm, and cmd/client uses it for the
// interactive shell.
//
// Transport failures are reported wrapped around ErrUnavailable so callers can
// tell them apart from an ERROR response, which is returned as a normal
// protocol.Response.
package client
