//go:build !(js && wasm)

package bootstrap

// Detect reports the environment of a native process, which can both
// fetch and read files.
func Detect() Environment {
	return Environment{Name: "native", CanFetch: true, HasFS: true}
}
