// Package cli provides the interactive civicsync command-line client.
//
// It wires configuration, the local mock store, the dual-mode dispatcher
// and the domain services, then runs a REPL. Sign-in works online and falls
// back to an offline profile when the backend is unreachable.
//
// Commands:
//   - login / signup / logout
//   - report, retry (resubmit the last failed report)
//   - list, resolved, stats
//   - upvote <id>, assign <id>, progress <id>, resolve <id>
//   - watch (toggle live updates)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
