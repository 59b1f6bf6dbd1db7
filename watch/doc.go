// Package watch awaits several remote jobs concurrently. All waits for a
// fixed batch of jobs; Group is a long-lived bounded pool accepting jobs
// as they are submitted. Each job gets its own independent polling session.
package watch
