package linear

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/errors"
)

// PageSize is the WebAssembly page size in bytes.
const PageSize = 65536

// MaxPages is the largest memory whose size fits in a uint32.
const MaxPages = 65535

// Config holds configuration for a linear-memory allocator.
type Config struct {
	// Pages sets the memory size in 64 KiB pages. The memory never grows,
	// so this is also the allocator's capacity. 0 means DefaultPages.
	Pages uint32

	// ModuleName names the instantiated module inside the wazero runtime.
	ModuleName string
}

// DefaultPages is 1 MiB of linear memory.
const DefaultPages = 16

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Pages:      DefaultPages,
		ModuleName: "rcstring-arena",
	}
}

// Memory is an allocator whose blocks live in WebAssembly linear memory.
// Block.Ref is the block's address in that memory, so a guest sharing the
// memory can read block contents at Ref.
type Memory struct {
	rt    wazero.Runtime
	mod   api.Module
	mem   api.Memory
	arena *alloc.Arena
}

// New instantiates a fixed-size memory in a fresh wazero runtime and
// returns an allocator over it. Close releases the runtime.
func New(ctx context.Context, cfg Config) (*Memory, error) {
	if cfg.Pages == 0 {
		cfg.Pages = DefaultPages
	}
	if cfg.Pages > MaxPages {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "pages",
			fmt.Sprintf("%d pages exceeds %d", cfg.Pages, MaxPages))
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = DefaultConfig().ModuleName
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(cfg.Pages))

	compiled, err := rt.CompileModule(ctx, memoryModule(cfg.Pages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindInvalidData, err, "compile memory module")
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(cfg.ModuleName))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory(MemoryExport)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.InvalidData(errors.PhaseAlloc, "memory module has no exported memory")
	}

	// The memory cannot grow, so this view stays valid for the runtime's life.
	region, ok := mem.Read(0, mem.Size())
	if !ok {
		_ = rt.Close(ctx)
		return nil, errors.OutOfBounds(errors.PhaseAlloc, 0, uint64(mem.Size()))
	}

	Logger().Debug("linear memory ready",
		zap.String("module", cfg.ModuleName),
		zap.Uint32("pages", cfg.Pages),
		zap.Uint32("bytes", mem.Size()))

	return &Memory{
		rt:    rt,
		mod:   mod,
		mem:   mem,
		arena: alloc.NewArena(region),
	}, nil
}

// Alloc returns a zeroed block in linear memory.
func (m *Memory) Alloc(size uint64) (rcstring.Block, error) {
	return m.arena.Alloc(size)
}

// Free returns a block to the arena.
func (m *Memory) Free(b rcstring.Block) {
	m.arena.Free(b)
}

// MaxSize returns the memory size in bytes.
func (m *Memory) MaxSize() uint64 {
	return m.arena.MaxSize()
}

// Arena exposes the underlying arena for statistics.
func (m *Memory) Arena() *alloc.Arena {
	return m.arena
}

// Memory returns the wazero memory backing the allocator.
func (m *Memory) Memory() api.Memory {
	return m.mem
}

// Read copies length bytes at ptr out of linear memory through the wazero API.
func (m *Memory) Read(ptr, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseAlloc, uint64(ptr)+uint64(length), uint64(m.mem.Size()))
	}
	return append([]byte(nil), data...), nil
}

// Close releases the wazero runtime. Blocks still live become invalid.
func (m *Memory) Close(ctx context.Context) error {
	if err := m.arena.Close(); err != nil {
		return err
	}
	if err := m.mod.Close(ctx); err != nil {
		Logger().Warn("close memory module", zap.Error(err))
	}
	return m.rt.Close(ctx)
}
