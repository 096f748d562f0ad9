//go:build js && wasm

package bootstrap

import "syscall/js"

// Detect probes the JavaScript globals. A Node-style host exposes
// process.versions.node and a file system; a browser exposes window or
// document and can only fetch.
func Detect() Environment {
	global := js.Global()
	canFetch := global.Get("fetch").Type() == js.TypeFunction

	if process := global.Get("process"); truthy(process) {
		if versions := process.Get("versions"); truthy(versions) && truthy(versions.Get("node")) {
			return Environment{Name: "node", CanFetch: canFetch, HasFS: true}
		}
	}
	if truthy(global.Get("window")) || truthy(global.Get("document")) {
		return Environment{Name: "browser", CanFetch: canFetch}
	}
	return Environment{Name: "worker", CanFetch: canFetch}
}

func truthy(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull() && v.Truthy()
}
