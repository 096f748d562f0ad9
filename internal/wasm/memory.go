package wasm

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"

	abi "github.com/woxQAQ/taffy-bridge/api/wasm"
)

var (
	errNoMemory    = errors.New("module exports no memory")
	errOutOfBounds = errors.New("out of bounds")
	errAllocFailed = errors.New("guest allocator returned null")
)

// Memory provides bounds-checked access to an instance's linear memory.
// Writes go through the guest's taffy_alloc so the guest owns every
// buffer the host fills.
type Memory struct {
	inst *Instance
	mem  api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(inst *Instance) *Memory {
	return &Memory{inst: inst, mem: inst.module.Memory()}
}

// ReadString reads a null-terminated string of at most maxLen bytes.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, bool) {
	buf, ok := m.ReadBytes(ptr, maxLen)
	if !ok {
		return "", false
	}

	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}

	return string(buf[:end]), true
}

// ReadBytes reads raw bytes. The result aliases guest memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	if m.mem == nil {
		return nil, false
	}
	return m.mem.Read(ptr, length)
}

// ReadFloat32s reads n consecutive little-endian float32 values.
func (m *Memory) ReadFloat32s(ptr uint32, n int) ([]float32, error) {
	if m.mem == nil {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Err: errNoMemory}
	}
	out := make([]float32, n)
	for i := range out {
		v, ok := m.mem.ReadFloat32Le(ptr + uint32(4*i))
		if !ok {
			return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: uint32(4 * n), Err: errOutOfBounds}
		}
		out[i] = v
	}
	return out, nil
}

// WriteBytes copies data into a fresh guest allocation and returns its
// address. Callers release it with Free.
func (m *Memory) WriteBytes(ctx context.Context, data []byte) (uint32, error) {
	if m.mem == nil {
		return 0, &MemoryAccessError{Operation: "write", Length: uint32(len(data)), Err: errNoMemory}
	}
	res, err := m.inst.Call(ctx, abi.ExportAlloc, api.EncodeU32(uint32(len(data))))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, &MemoryAccessError{Operation: "alloc", Length: uint32(len(data)), Err: errAllocFailed}
	}
	if !m.mem.Write(ptr, data) {
		return 0, &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfBounds}
	}
	return ptr, nil
}

// WriteString is WriteBytes for a string.
func (m *Memory) WriteString(ctx context.Context, s string) (uint32, error) {
	return m.WriteBytes(ctx, []byte(s))
}

// Free returns an allocation made by WriteBytes to the guest.
func (m *Memory) Free(ctx context.Context, ptr, size uint32) error {
	_, err := m.inst.Call(ctx, abi.ExportFree, api.EncodeU32(ptr), api.EncodeU32(size))
	return err
}
