// Package tasks runs library work off the calling goroutine.
//
// # Threads
//
// A [Looper] is the single "main" goroutine: functions posted to it run one at a time, in order.
// Plugin state that must not be touched concurrently (the pending-request slot, reply delivery)
// is only mutated from the looper.
//
// A [Pool] is a fixed set of worker goroutines fed from a buffered job queue. Store queries,
// artwork decoding and playlist writes run there.
//
// [Dispatcher] binds one of each behind the [Executor] interface. [Inline] runs everything on the
// caller, for code that is already off-thread and for deterministic tests.
//
// # Load tasks
//
// A [LoadTask] carries a [models.QuerySpec], a body that turns it into a result on a pool worker,
// and a completion that receives the result on the looper:
//
//	task := tasks.NewLoadTask(spec, loadArtists, func(records []models.Record) {
//		reply.Success(records)
//	})
//	task.Execute(executor)
//
// The body and the completion each run exactly once. There is no retry and no cancellation.
// [Run] is the same shape for closures without a spec.
//
// # Progress Reporting
//
// Long operations such as a library scan report [ProgressUpdate] values through [SendProgress],
// which never blocks the sender.
package tasks
