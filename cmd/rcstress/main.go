package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/alloc/linear"
	"github.com/wippyai/rcstring/handle"
	"github.com/wippyai/rcstring/internal/stress"
	"github.com/wippyai/rcstring/rcstr"
)

func main() {
	def := stress.DefaultConfig()
	var (
		backend     = flag.String("backend", "heap", "Allocator backend (heap, pool, arena, linear, mmap)")
		workers     = flag.Int("workers", def.Workers, "Goroutines sharing each string")
		shares      = flag.Int("shares", def.Shares, "Assignments per worker per string")
		rounds      = flag.Int("rounds", def.Rounds, "Publish/share/release rounds")
		arenaSize   = flag.Int("arena-size", 1<<20, "Region size in bytes for arena, linear and mmap backends")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	var log *zap.Logger
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer l.Sync()
		log = l
		alloc.SetLogger(l.Named("alloc"))
		linear.SetLogger(l.Named("linear"))
		handle.SetLogger(l.Named("handle"))
		rcstr.SetLogger(l.Named("rcstr"))
	}

	ctx := context.Background()
	b, err := openBackend(ctx, *backend, *arenaSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer b.close()

	cfg := stress.Config{
		Allocator: b.alloc,
		Logger:    log,
		Workers:   *workers,
		Shares:    *shares,
		Rounds:    *rounds,
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "stdout is not a terminal, running without TUI")
		} else {
			if err := runInteractive(b.name, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(ctx, b.name, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, backend string, cfg stress.Config) error {
	fmt.Printf("Backend: %s\n", backend)
	fmt.Printf("Workers: %d, shares: %d, rounds: %d\n", cfg.Workers, cfg.Shares, cfg.Rounds)

	rep, err := stress.Run(ctx, cfg, nil)
	fmt.Print(formatReport(rep))
	if err != nil {
		return err
	}
	if !rep.Ok() {
		return fmt.Errorf("run finished with %d live blocks, %d bytes leaked", rep.Alloc.LiveBlocks, rep.Leaked)
	}
	return nil
}

func formatReport(rep stress.Report) string {
	storages := make([]rcstr.Storage, 0, len(rep.Created))
	for s := range rep.Created {
		storages = append(storages, s)
	}
	sort.Slice(storages, func(i, j int) bool { return storages[i] < storages[j] })

	out := fmt.Sprintf("\nRounds: %d in %s\n", rep.Rounds, rep.Elapsed.Round(time.Microsecond))
	out += fmt.Sprintf("Shares: %d\n", rep.Shares)
	out += "\nStrings:\n"
	for _, s := range storages {
		out += fmt.Sprintf("  %-12s created %-6d disposed %d\n", s, rep.Created[s], rep.Disposed[s])
	}
	out += fmt.Sprintf("  custom free callbacks: %d\n", rep.Frees)
	out += fmt.Sprintf("\nAllocator: %d allocs, %d frees, %d failures\n",
		rep.Alloc.Allocs, rep.Alloc.Frees, rep.Alloc.Failures)
	out += fmt.Sprintf("Leaked: %d bytes in %d blocks\n", rep.Leaked, rep.Alloc.LiveBlocks)
	return out
}
