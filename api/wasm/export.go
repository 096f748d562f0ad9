//go:build wasm

package wasm

// This file documents the exports a layout engine artifact must provide.
// Guest modules built with Go implement them with //go:wasmexport.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a
// 32-bit linear memory model. Node ids are non-zero uint32 values; zero
// signals failure wherever a node id is returned.
//
// Memory:
//
// //go:wasmexport taffy_alloc
// func alloc(size uint32) (ptr uint32)
//
// //go:wasmexport taffy_free
// func free(ptr, size uint32)
//
// Tree editing. Styles are JSON style descriptors. Status results use the
// Status* constants.
//
// //go:wasmexport taffy_node_new
// func nodeNew(stylePtr, styleLen uint32) (node uint32)
//
// //go:wasmexport taffy_node_set_style
// func nodeSetStyle(node, stylePtr, styleLen uint32) (status int32)
//
// //go:wasmexport taffy_node_set_children
// func nodeSetChildren(node, childrenPtr, count uint32) (status int32)
//
// //go:wasmexport taffy_node_child_count
// func nodeChildCount(node uint32) (count int32)
//
// //go:wasmexport taffy_node_child_at
// func nodeChildAt(node, index uint32) (child uint32)
//
// //go:wasmexport taffy_node_remove
// func nodeRemove(node uint32) (status int32)
//
// //go:wasmexport taffy_node_mark_dirty
// func nodeMarkDirty(node uint32) (status int32)
//
// Layout:
//
// //go:wasmexport taffy_compute
// func compute(root, widthKind uint32, width float32, heightKind uint32, height float32) (status int32)
//
// //go:wasmexport taffy_layout
// func layout(node, outPtr uint32) (status int32)
//
// Imports available from the "taffy_host" module:
//
// //go:wasmimport taffy_host diag_write
// func diagWrite(node, ptr, length uint32)
//
// //go:wasmimport taffy_host log
// func log(level, ptr, length uint32)
