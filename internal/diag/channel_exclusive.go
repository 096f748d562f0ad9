//go:build browser_console && node_console

package diag

// Selecting both console channels is a build error.
var _ = browser_console_and_node_console_are_mutually_exclusive
