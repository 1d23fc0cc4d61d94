// Package events defines the typed contract between a live transport and the
// session that consumes it.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - connection.*
//   - server_content.*
//   - transcript.*
//
// connection events
//
//   - Opened (connection.opened): the remote service accepted the session
//     setup and is ready for audio.
//   - Error (connection.error): the transport failed. Fatal for the attempt.
//   - Closed (connection.closed): the connection ended. Carries the close
//     reason when the remote side supplied one.
//
// server_content events
//
//   - AudioChunk (server_content.audio_chunk): base64 PCM16 produced by the
//     model, 24kHz mono.
//   - Interrupted (server_content.interrupted): the remote side detected user
//     barge-in. Queued playback must be cut.
//   - TurnComplete (server_content.turn_complete): the current exchange is
//     over and pending transcript text can be finalized.
//
// transcript events
//
//   - TranscriptDelta (transcript.delta): append-only text piece attributed to
//     a speaker, in stream order.
package events
