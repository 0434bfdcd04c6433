// Package health holds the liveness and readiness probes for the server and
// the handlers that expose them.
//
// Probes compose with [All] and [Any]. [ShutdownGate] fails readiness as soon
// as shutdown starts so load balancers drain the instance before the
// listeners close. [Source] reports whether the content source answers.
package health
