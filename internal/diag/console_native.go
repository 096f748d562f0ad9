//go:build !(js && wasm)

package diag

import "go.uber.org/zap"

// hostConsole logs through the process logger, which is the embedding
// host's log facility outside a JavaScript sandbox.
func hostConsole() func(string) {
	return func(line string) {
		zap.L().Named("console").Info(line)
	}
}
