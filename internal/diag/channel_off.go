//go:build !debug_logging

package diag

// Active is the channel compiled into this build.
const Active = ChannelOff
