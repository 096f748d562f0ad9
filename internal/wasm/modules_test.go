package wasm

// Hand-assembled modules used across the package tests.

func wasmSection(id byte, parts ...[]byte) []byte {
	var body []byte
	for _, p := range parts {
		body = append(body, p...)
	}
	return append(append([]byte{id}, uleb128(uint32(len(body)))...), body...)
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func wasmExport(name string, kind, index byte) []byte {
	return append(wasmName(name), kind, index)
}

// wasmBody wraps instructions as a function body without locals.
func wasmBody(code ...byte) []byte {
	body := append([]byte{0x00}, code...)
	body = append(body, 0x0b)
	return append(uleb128(uint32(len(body))), body...)
}

func wasmName(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func wasmModule(sections ...[]byte) []byte {
	out := []byte{
		0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
		0x01, 0x00, 0x00, 0x00, // Version: 1
	}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

// emptyModule is a valid module with nothing in it.
var emptyModule = wasmModule()

// memoryModule exports one page of memory.
var memoryModule = wasmModule(
	wasmSection(0x05, []byte{0x01, 0x00, 0x01}),
	wasmSection(0x07, []byte{0x01}, wasmName("memory"), []byte{0x02, 0x00}),
)

// allocModule exports memory, a taffy_alloc that always returns 1024 and
// a taffy_free that does nothing.
var allocModule = wasmModule(
	wasmSection(0x01, []byte{0x02,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x00, // (i32, i32) -> ()
	}),
	wasmSection(0x03, []byte{0x02, 0x00, 0x01}),
	wasmSection(0x05, []byte{0x01, 0x00, 0x01}),
	wasmSection(0x07, []byte{0x03},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("taffy_alloc"), []byte{0x00, 0x00},
		wasmName("taffy_free"), []byte{0x00, 0x01},
	),
	wasmSection(0x0a, []byte{0x02,
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b, // i32.const 1024
		0x02, 0x00, 0x0b,
	}),
)

const guestLine = "measure width=10 height=5 ok"

// diagModule exports "emit", which calls taffy_host.diag_write(7, 0, len)
// on a line stored at address 0.
var diagModule = wasmModule(
	wasmSection(0x01, []byte{0x02,
		0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x00, // (i32, i32, i32) -> ()
		0x60, 0x00, 0x00, // () -> ()
	}),
	wasmSection(0x02, []byte{0x01}, wasmName("taffy_host"), wasmName("diag_write"), []byte{0x00, 0x00}),
	wasmSection(0x03, []byte{0x01, 0x01}),
	wasmSection(0x05, []byte{0x01, 0x00, 0x01}),
	wasmSection(0x07, []byte{0x02},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("emit"), []byte{0x00, 0x01},
	),
	wasmSection(0x0a, []byte{0x01, 0x0a,
		0x00,
		0x41, 0x07, // i32.const 7
		0x41, 0x00, // i32.const 0
		0x41, byte(len(guestLine)),
		0x10, 0x00, // call 0
		0x0b,
	}),
	wasmSection(0x0b, []byte{0x01, 0x00, 0x41, 0x00, 0x0b}, wasmName(guestLine)),
)

// layoutModule carries every layout export with fixed behaviour:
//
//	taffy_alloc             -> 1024
//	taffy_node_new          -> node 5
//	taffy_node_set_style    -> ok for node 5, node-not-found otherwise
//	taffy_node_set_children -> invalid-tree
//	taffy_node_child_count  -> 2 for node 5, -1 otherwise
//	taffy_node_child_at     -> index + 6
//	taffy_layout            -> record (1.5, 2, 100, 50) for node 5
var layoutModule = wasmModule(
	wasmSection(0x01, []byte{0x05,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // 0: (i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x00, // 1: (i32, i32) -> ()
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, // 2: (i32, i32) -> i32
		0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x01, 0x7f, // 3: (i32, i32, i32) -> i32
		0x60, 0x05, 0x7f, 0x7f, 0x7d, 0x7f, 0x7d, 0x01, 0x7f, // 4: (i32, i32, f32, i32, f32) -> i32
	}),
	wasmSection(0x03, []byte{0x0b, 0x00, 0x01, 0x02, 0x03, 0x03, 0x00, 0x02, 0x00, 0x00, 0x04, 0x02}),
	wasmSection(0x05, []byte{0x01, 0x00, 0x01}),
	wasmSection(0x07, []byte{0x0c},
		wasmExport("memory", 0x02, 0x00),
		wasmExport("taffy_alloc", 0x00, 0x00),
		wasmExport("taffy_free", 0x00, 0x01),
		wasmExport("taffy_node_new", 0x00, 0x02),
		wasmExport("taffy_node_set_style", 0x00, 0x03),
		wasmExport("taffy_node_set_children", 0x00, 0x04),
		wasmExport("taffy_node_child_count", 0x00, 0x05),
		wasmExport("taffy_node_child_at", 0x00, 0x06),
		wasmExport("taffy_node_remove", 0x00, 0x07),
		wasmExport("taffy_node_mark_dirty", 0x00, 0x08),
		wasmExport("taffy_compute", 0x00, 0x09),
		wasmExport("taffy_layout", 0x00, 0x0a),
	),
	wasmSection(0x0a, []byte{0x0b},
		wasmBody(0x41, 0x80, 0x08), // i32.const 1024
		wasmBody(),
		wasmBody(0x41, 0x05),
		wasmBody(0x20, 0x00, 0x41, 0x05, 0x47), // id != 5
		wasmBody(0x41, 0x03),
		wasmBody(0x41, 0x02, 0x41, 0x7f, 0x20, 0x00, 0x41, 0x05, 0x46, 0x1b), // id == 5 ? 2 : -1
		wasmBody(0x20, 0x01, 0x41, 0x06, 0x6a), // index + 6
		wasmBody(0x41, 0x00),
		wasmBody(0x41, 0x00),
		wasmBody(0x41, 0x00),
		wasmBody(
			0x20, 0x00, 0x41, 0x05, 0x47, 0x04, 0x40, 0x41, 0x01, 0x0f, 0x0b, // if id != 5 return 1
			0x20, 0x01, 0x43, 0x00, 0x00, 0xc0, 0x3f, 0x38, 0x02, 0x00, // x = 1.5
			0x20, 0x01, 0x43, 0x00, 0x00, 0x00, 0x40, 0x38, 0x02, 0x04, // y = 2
			0x20, 0x01, 0x43, 0x00, 0x00, 0xc8, 0x42, 0x38, 0x02, 0x08, // width = 100
			0x20, 0x01, 0x43, 0x00, 0x00, 0x48, 0x42, 0x38, 0x02, 0x0c, // height = 50
			0x41, 0x00,
		),
	),
)
