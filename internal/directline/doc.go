// Package directline implements the transport and conversation-session layers
// of the Direct Line v3 protocol used by Copilot Studio agents.
//
// The package covers the full conversation lifecycle:
//
//   - token generation (POST /tokens/generate)
//   - conversation start, optionally delegated via an Entra ID user token
//     (POST /conversations)
//   - sending message activities (POST /conversations/{id}/activities)
//   - cursor-based activity polling (GET /conversations/{id}/activities)
//   - conversation token refresh (POST /tokens/refresh)
//
// Error taxonomy: any non-2xx response is a *TransportError carrying the
// status code and raw body; a 2xx response with an unexpected shape is a
// *ProtocolError. Neither is retried at this layer -- retry policy for the
// polling path lives in the reconciler package, and send failures always
// surface immediately.
//
// Which-is-new bookkeeping (watermarks, seen activity IDs) also lives in the
// reconciler package; this package returns batches exactly as the backend
// delivered them.
package directline
