// Package observer provides poll.Observer implementations which report
// polling progress without taking part in the polling logic: structured
// logs, Prometheus metrics, NATS progress events and a Redis status record.
package observer
