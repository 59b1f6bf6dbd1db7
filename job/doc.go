// Package job describes remote jobs watched by the poll package: a Handle
// identifying a submitted job, and the glue that turns a service status
// call into a poll.StatusFetcher.
package job
