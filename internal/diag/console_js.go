//go:build js && wasm

package diag

import "syscall/js"

// hostConsole logs through the JavaScript console, the only text output
// available inside the sandbox.
func hostConsole() func(string) {
	console := js.Global().Get("console")
	return func(line string) {
		console.Call("log", line)
	}
}
