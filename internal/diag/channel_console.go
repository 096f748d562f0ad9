//go:build debug_logging && browser_console

package diag

// Active is the channel compiled into this build.
const Active = ChannelHostConsole
