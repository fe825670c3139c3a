// Package classifier decides, once per boot, whether the previous session
// ended abnormally and needs a crash archive.
//
// The decision is one of:
//
//   - NoSave: normal boot, normal variant, or a completed prior cycle.
//   - SaveSimple: a simple reset. Always collected.
//   - SavePriorIncomplete: the previous collection cycle was interrupted and
//     is resumed under incident.ModIDLastSaveNotDone.
//
// For a completed prior cycle the configured LogSaver runs first, then, when
// the human-readable rendering of the last archive is still pending, the
// CleartextFinalizer. Both are side effects and never change the decision.
package classifier
