/*
Package poll waits for long-running remote jobs to reach a terminal state.

A remote service reports job progress in its own vocabulary ("Finished",
"UpToDate", "NotStarted", ...). A StatusFetcher translates one status query
into the closed Status set, usually through a Mapping, and the Poller calls it
repeatedly until the job is terminal, the policy deadline elapses or the
caller's context is done.

	fetcher := job.NewFetcher(query, poll.NewMapping(
		poll.Rule{Matcher: matcher.StateIn("Queued", "Scheduled"), Status: poll.Pending},
		poll.Rule{Matcher: matcher.StateEquals("Processing"), Status: poll.Running},
		poll.Rule{Matcher: matcher.StateEquals("Finished"), Status: poll.Succeeded},
	))

	status, err := poll.Await(ctx, fetcher, poll.Policy{
		Interval: 15 * time.Second,
		Timeout:  10 * time.Minute,
	}, poll.WithObserver(func(s poll.Status, attempt int) {
		fmt.Println(attempt, s)
	}))

The outcome is one of:
  - a terminal job Status (Succeeded, Failed, Cancelled) and a nil error;
  - TimedOut and a nil error when the poller gave up;
  - an error matching ErrAborted when a status query failed fatally;
  - an error matching ErrCancelled when the caller's context was done.

Each Await call owns its own counters and deadline, so any number of calls
may run concurrently.
*/
package poll
