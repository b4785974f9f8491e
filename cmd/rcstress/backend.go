package main

import (
	"context"
	"fmt"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/alloc/linear"
	"github.com/wippyai/rcstring/alloc/mmap"
)

type backend struct {
	alloc rcstring.Allocator
	close func() error
	name  string
}

func openBackend(ctx context.Context, name string, size int) (*backend, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena size must be positive, got %d", size)
	}
	nop := func() error { return nil }

	switch name {
	case "heap":
		return &backend{alloc: alloc.NewHeap(), close: nop, name: name}, nil

	case "pool":
		return &backend{alloc: alloc.NewPool(), close: nop, name: name}, nil

	case "arena":
		a := alloc.NewArena(make([]byte, size))
		return &backend{alloc: a, close: a.Close, name: fmt.Sprintf("arena (%d bytes)", size)}, nil

	case "linear":
		pages := (size + linear.PageSize - 1) / linear.PageSize
		if pages > linear.MaxPages {
			return nil, fmt.Errorf("arena size %d exceeds %d pages of linear memory", size, linear.MaxPages)
		}
		cfg := linear.DefaultConfig()
		cfg.Pages = uint32(pages)
		m, err := linear.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("linear memory: %w", err)
		}
		return &backend{
			alloc: m,
			close: func() error { return m.Close(ctx) },
			name:  fmt.Sprintf("linear (%d pages)", pages),
		}, nil

	case "mmap":
		r, err := mmap.New(size)
		if err != nil {
			return nil, fmt.Errorf("mmap: %w", err)
		}
		return &backend{alloc: r, close: r.Close, name: fmt.Sprintf("mmap (%d bytes)", r.MaxSize())}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q (want heap, pool, arena, linear or mmap)", name)
	}
}
