package wasm

import (
	"context"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/taffy-bridge/api/wasm"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
	"github.com/woxQAQ/taffy-bridge/internal/engine"
)

// maxGuestMessage bounds how much guest memory one host call may read.
const maxGuestMessage = 4 * diag.DefaultMaxLineBytes

// route is where diagnostics of one instance go.
type route struct {
	sink  diag.Sink
	label func(engine.NodeID) string
}

// HostFunctions implements the taffy_host module imported by guests.
type HostFunctions struct {
	runtime *Runtime
	logger  *zap.Logger
}

func newHostFunctions(runtime *Runtime, logger *zap.Logger) *HostFunctions {
	return &HostFunctions{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-host")),
	}
}

// instantiate registers the host module. wazero allows one module per
// name, so this happens once per Runtime.
func (h *HostFunctions) instantiate(ctx context.Context) error {
	_, err := h.runtime.runtime.NewHostModuleBuilder(abi.HostModule).
		NewFunctionBuilder().
		WithFunc(h.diagWrite).
		WithParameterNames("node", "ptr", "length").
		Export(abi.HostDiagWrite).
		NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export(abi.HostLog).
		Instantiate(ctx)
	if err != nil {
		return &HostFunctionError{FunctionName: abi.HostModule, Err: err}
	}
	return nil
}

// diagWrite is called by guests to emit one diagnostic line about node.
// Signature: diag_write(node, ptr, length)
func (h *HostFunctions) diagWrite(_ context.Context, mod api.Module, node uint32, ptr uint32, length uint32) {
	val, ok := h.runtime.routes.Load(mod.Name())
	if !ok {
		return
	}
	rt := val.(*route)
	if rt.sink == nil {
		return
	}

	msg, ok := readGuest(mod, ptr, length)
	if !ok {
		h.logger.Warn("Failed to read diagnostic line from Wasm memory",
			zap.String("instance_id", mod.Name()),
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	label := strconv.FormatUint(uint64(node), 10)
	if rt.label != nil {
		label = rt.label(engine.NodeID(node))
	}
	name, fields := parseGuestLine(msg)
	diag.Emit(rt.sink, diag.Event{Node: label, Name: name, Fields: fields})
}

// logMessage is called by guests to log messages.
// Signature: log(level, ptr, length)
// level: 0 = debug, 1 = info, 2 = warn, 3 = error
func (h *HostFunctions) logMessage(_ context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	msg, ok := readGuest(mod, ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	logger := h.logger.With(zap.String("instance_id", mod.Name()))
	switch level {
	case abi.LogDebug:
		logger.Debug(msg)
	case abi.LogWarn:
		logger.Warn(msg)
	case abi.LogError:
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
}

func readGuest(mod api.Module, ptr, length uint32) (string, bool) {
	mem := mod.Memory()
	if mem == nil {
		return "", false
	}
	if length > maxGuestMessage {
		length = maxGuestMessage
	}
	buf, ok := mem.Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(buf), true
}

// parseGuestLine splits "<event> key=value ..." into an event name and
// fields. Tokens without '=' are collected into a msg field.
func parseGuestLine(line string) (string, []diag.Field) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "guest", nil
	}

	var fields []diag.Field
	var rest []string
	for _, tok := range tokens[1:] {
		if k, v, ok := strings.Cut(tok, "="); ok && k != "" {
			fields = append(fields, diag.F(k, v))
			continue
		}
		rest = append(rest, tok)
	}
	if len(rest) > 0 {
		fields = append(fields, diag.F("msg", strings.Join(rest, " ")))
	}
	return tokens[0], fields
}
