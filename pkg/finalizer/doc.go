// Package finalizer turns a drained incident into a durable crash archive.
//
// A collection cycle uses the Finalizer in this order:
//
//	a, err := f.CreateArchive(ctx)   // PATH_CREATION aborts the cycle
//	guard, _ := f.BeginSaving(ctx)
//	defer guard.Release(ctx)
//	// drain module dumps into a.Dir
//	_ = f.WriteBaseline(ctx, a, prev)
//	_ = f.WriteReport(ctx, a, rep)
//	err = f.Complete(ctx, a)         // checksums.txt, DONE, crash store flags
//	_, _ = f.Retain(ctx, a.Name)
//
// Archive names start with a UTC timestamp followed by a random id, so
// lexical order is creation order. Retention removes the oldest archives
// beyond a count and a byte budget and never removes the current one.
//
// Cleartext renders the newest completed archive's report as report.txt on
// a later boot and marks the crash store's cleartext flag done.
package finalizer
