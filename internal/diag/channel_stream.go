//go:build debug_logging && !browser_console

package diag

// Active is the channel compiled into this build. debug_logging without a
// console tag writes to stdout, same as node_console.
const Active = ChannelNativeStream
