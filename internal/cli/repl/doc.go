// Package repl implements the interactive mode of keyforge-admin.
//
// The loop reads one command per line, dispatches it through the same
// command table as one-shot invocations, and prints errors without
// terminating the session. History persists across sessions under
// ~/.keyforge/history; Completer supplies prefix suggestions for every
// registered command.
package repl
