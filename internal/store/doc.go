/*
Package store implements the pending-request store and the suspend/resume
protocol built on top of it.

# Lifecycle

Every intercepted chat-completion request becomes one entry:

 1. Create registers the raw request payload and returns a fresh ID.
 2. Await suspends the calling goroutine until the entry is resolved,
    then consumes the result and removes the entry.
 3. Resolve attaches a fully-formed completion response to the entry,
    waking its waiter. An entry transitions to resolved exactly once;
    a second Resolve for the same ID fails with ErrAlreadyResolved.

Entries live only in process memory. Nothing is persisted; a restart
drops all pending requests.

# Wakeup

Each entry owns a buffered one-shot channel. Resolve deposits the result
there, so waking the waiter never blocks the resolver. Removing an entry
that was never resolved closes the channel instead, which makes a
concurrent Await terminate with ErrNotFound rather than wait forever.

# Waiting

Await has no deadline: a pending request waits for human review however
long that takes. This is deliberate, but it means a caller that
disconnects leaves its entry orphaned until someone resolves or removes
it. AwaitTimeout bounds the wait and expires the entry for deployments
that want that hardening; the unbounded behavior stays the default.
*/
package store
