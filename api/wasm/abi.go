// Package wasm describes the binary interface between the binding layer and
// a layout engine compiled to WebAssembly.
package wasm

// HostModule is the import module name the host provides to guests.
const HostModule = "taffy_host"

// Host functions exported by HostModule.
const (
	HostDiagWrite = "diag_write"
	HostLog       = "log"
)

// Guest exports.
const (
	ExportAlloc           = "taffy_alloc"
	ExportFree            = "taffy_free"
	ExportNodeNew         = "taffy_node_new"
	ExportNodeSetStyle    = "taffy_node_set_style"
	ExportNodeSetChildren = "taffy_node_set_children"
	ExportNodeChildCount  = "taffy_node_child_count"
	ExportNodeChildAt     = "taffy_node_child_at"
	ExportNodeRemove      = "taffy_node_remove"
	ExportNodeMarkDirty   = "taffy_node_mark_dirty"
	ExportCompute         = "taffy_compute"
	ExportLayout          = "taffy_layout"
)

// RequiredExports lists every export an engine artifact must carry.
var RequiredExports = []string{
	ExportAlloc,
	ExportFree,
	ExportNodeNew,
	ExportNodeSetStyle,
	ExportNodeSetChildren,
	ExportNodeChildCount,
	ExportNodeChildAt,
	ExportNodeRemove,
	ExportNodeMarkDirty,
	ExportCompute,
	ExportLayout,
}

// Status codes returned by tree editing and layout exports.
const (
	StatusOK           int32 = 0
	StatusNodeNotFound int32 = 1
	StatusInvalidStyle int32 = 2
	StatusInvalidTree  int32 = 3
)

// Available space kinds passed to taffy_compute.
const (
	SpaceDefinite   uint32 = 0
	SpaceMinContent uint32 = 1
	SpaceMaxContent uint32 = 2
)

// LayoutRecordSize is the size of the record taffy_layout writes: four
// little-endian float32 values x, y, width, height.
const LayoutRecordSize = 16

// Log levels accepted by the log host function.
const (
	LogDebug uint32 = 0
	LogInfo  uint32 = 1
	LogWarn  uint32 = 2
	LogError uint32 = 3
)
