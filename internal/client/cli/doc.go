// Package cli provides the interactive ContentIQ command-line client.
//
// It wires configuration, the local store, the remote archive, the session
// manager and the analysis provider, then runs a REPL. Typical flow:
// restore the previous session, optionally log in, run analyses and browse
// the history while remote sync happens in the background.
//
// Commands:
//   - login / logout
//   - youtube <url>, pdf <path>, resume <path>, image <prompt...>,
//     refine <path> [instructions...]
//   - history, show <id>, clear, sync, status
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
