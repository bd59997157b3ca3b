// Package reconciler resolves "what is new since last check" against the
// Direct Line polling API.
//
// # Architecture
//
// The package is built around these core concepts:
//
//   - Session: per-conversation polling state (watermark cursor, set of seen
//     activity IDs) plus the conversation handle itself. All state is owned by
//     the Session value; there are no package-level singletons.
//   - Classifier: pluggable bot-origin detection. Backends populate from.id
//     and from.role inconsistently, so the default heuristic can be replaced
//     per deployment.
//   - AwaitResponse: the bounded poll/dedup loop that drives a conversation
//     turn to one of three outcomes: responses found, poll budget exhausted,
//     or caller cancellation.
//
// # Invariants
//
//   - An activity ID is surfaced at most once per Session, even when the
//     backend returns overlapping batches. Deduplication is local and does
//     not depend on watermark correctness.
//   - The watermark only moves forward: every poll that returns a non-empty
//     watermark advances the cursor, whether or not new activities arrived.
//   - AwaitResponse performs at most MaxPolls polls; there is no unbounded
//     wait anywhere.
//
// # Concurrency
//
// A Session is single-driver by construction: one logical goroutine owns it
// and at most one poll is in flight at a time. Sessions for different
// conversations are fully independent. Callers that share a Session across
// goroutines must serialize access externally (see internal/webchat).
package reconciler
