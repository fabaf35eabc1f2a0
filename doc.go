// Package taskloop provides a minimal cooperative task runtime: many
// suspendable computations ("tasks") interleave with exactly one of them
// running at any instant, and wait on descriptor readiness via a reactor,
// rather than busy-polling.
//
// # Architecture
//
// An [Executor] owns the tasks, a monotonic [Token] counter, and a
// [Reactor]. [Executor.Run] spawns a root [Func], then ticks until no task
// remains:
//
//  1. Every task that was runnable at the start of the tick is resumed, in
//     spawn order. A task that finishes is removed immediately. A task that
//     suspends becomes pending.
//  2. If tasks remain, the reactor is probed exactly once, and every pending
//     task whose token it reports becomes runnable again.
//
// The probe does not wait while any task is runnable (e.g. one spawned during
// the tick), and otherwise waits up to [DefaultProbeTimeout] (see
// [WithProbeTimeout]). There are no timers, priorities or timeouts: a task
// waiting on a descriptor that never becomes ready stays pending forever,
// and Run keeps probing.
//
// # Suspension
//
// Tasks are backed by coroutines ([iter.Pull]), and suspend only via
// [Task.Suspend]. Resource owners, such as the tcp subpackage, call
// [Task.Register] on "would block", then suspend, retrying the operation
// once resumed. The returned [Registration] is a scoped guard, released when
// the operation completes or is abandoned, so that no reactor entry outlives
// the operation that created it. A task may hold several registrations at
// once.
//
// # Errors
//
// Would-block conditions never surface as errors. A failed readiness probe
// is fatal to Run: the remaining tasks are abandoned, observing
// [ErrAbandoned] from Suspend, and Run returns a [*ProbeError]. Descriptor
// level conditions (error, hangup, closed) instead wake only the owning
// task, whose next I/O call reports them.
//
// # Concurrency
//
// Executors are independent, and are not safe for concurrent use. All
// methods must be called before Run, or from within the executor's tasks.
//
// # Usage
//
//	err := taskloop.Run(func(t *taskloop.Task) {
//	    t.Spawn(func(t *taskloop.Task) {
//	        fmt.Println("Inside spawned task")
//	    })
//	    fmt.Println("Hello, world!")
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
package taskloop
