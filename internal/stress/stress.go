// Package stress hammers the string factories and slots from many
// goroutines and checks that every block comes back to the allocator.
package stress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/rcstring"
	"github.com/wippyai/rcstring/alloc"
	"github.com/wippyai/rcstring/errors"
	"github.com/wippyai/rcstring/rcstr"
)

// Config holds configuration for a stress run.
type Config struct {
	// Allocator backs every string. nil selects a heap allocator.
	Allocator rcstring.Allocator

	// Logger receives per-round diagnostics. nil disables them.
	Logger *zap.Logger

	// Workers is the number of goroutines sharing each published string.
	Workers int

	// Shares is how many times each worker assigns the string to its own slot.
	Shares int

	// Rounds is the number of publish/share/release cycles.
	Rounds int
}

// DefaultConfig returns a configuration suitable for a quick run.
func DefaultConfig() Config {
	return Config{
		Workers: 8,
		Shares:  1000,
		Rounds:  50,
	}
}

// Progress is called after each round with the rounds completed so far.
type Progress func(done, total int)

// Report summarizes a run.
type Report struct {
	Rounds   int
	Created  map[rcstr.Storage]uint64
	Disposed map[rcstr.Storage]uint64
	Shares   uint64
	Frees    uint64 // custom free callbacks
	Alloc    alloc.Stats
	Leaked   int64 // bytes still allocated after the run
	Elapsed  time.Duration
}

// Ok reports whether every created string was disposed and nothing leaked.
func (r Report) Ok() bool {
	if r.Leaked != 0 || r.Alloc.LiveBlocks != 0 {
		return false
	}
	for s, n := range r.Created {
		if r.Disposed[s] != n {
			return false
		}
	}
	return true
}

type source struct {
	name    string
	storage rcstr.Storage
	build   func(round int) (*rcstr.Handle, string, error)
}

type runner struct {
	cfg     Config
	counter *alloc.Counting
	track   *tracker
	factory *rcstr.Factory
	frees   atomic.Uint64
	shares  atomic.Uint64
	seed    *rcstr.Handle
}

// Run executes cfg.Rounds rounds. Each round builds one string per
// construction path, publishes it in a slot and lets cfg.Workers
// goroutines share it before the slot drops the last reference.
// Cancelling ctx stops the run between rounds.
func Run(ctx context.Context, cfg Config, progress Progress) (Report, error) {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Shares < 0 {
		return Report{}, errors.InvalidInput(errors.PhaseCreate, "shares", "negative share count")
	}
	if cfg.Rounds < 0 {
		return Report{}, errors.InvalidInput(errors.PhaseCreate, "rounds", "negative round count")
	}
	if cfg.Allocator == nil {
		cfg.Allocator = alloc.NewHeap()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	counter := alloc.NewCounting(cfg.Allocator)
	track := newTracker(counter)
	r := &runner{
		cfg:     cfg,
		counter: counter,
		track:   track,
		factory: rcstr.NewFactory(track),
	}

	report := Report{Created: make(map[rcstr.Storage]uint64)}
	start := time.Now()
	sources := r.sources()

	var runErr error
	for round := 0; round < cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		for _, src := range sources {
			if err := r.cycle(round, src); err != nil {
				runErr = fmt.Errorf("round %d %s: %w", round, src.name, err)
				break
			}
			report.Created[src.storage]++
		}
		if runErr != nil {
			break
		}
		report.Rounds++
		cfg.Logger.Debug("round complete",
			zap.Int("round", round),
			zap.Int64("live_blocks", counter.Stats().LiveBlocks))
		if progress != nil {
			progress(round+1, cfg.Rounds)
		}
	}

	if r.seed != nil {
		r.seed.Release()
		r.seed = nil
	}

	report.Disposed = track.disposed()
	report.Shares = r.shares.Load()
	report.Frees = r.frees.Load()
	report.Alloc = counter.Stats()
	report.Leaked = report.Alloc.LiveBytes
	report.Elapsed = time.Since(start)

	if report.Leaked != 0 {
		cfg.Logger.Error("leaked bytes after run", zap.Int64("bytes", report.Leaked))
	}
	return report, runErr
}

func (r *runner) sources() []source {
	return []source{
		{"copy", rcstr.StorageCopied, func(round int) (*rcstr.Handle, string, error) {
			want := fmt.Sprintf("copied-%d", round)
			h, err := r.factory.CopyString(want)
			return h, want, err
		}},
		{"move", rcstr.StorageMoved, func(round int) (*rcstr.Handle, string, error) {
			want := fmt.Sprintf("moved-%d", round)
			blk, err := r.track.Alloc(uint64(len(want) + 1))
			if err != nil {
				return nil, "", err
			}
			copy(blk.Data, want)
			h, err := r.factory.Move(blk)
			if err != nil {
				r.track.Free(blk)
				return nil, "", err
			}
			return h, want, nil
		}},
		{"custom-free", rcstr.StorageCustomFree, func(round int) (*rcstr.Handle, string, error) {
			want := fmt.Sprintf("borrowed-%d", round)
			blk, err := r.track.Alloc(uint64(len(want)))
			if err != nil {
				return nil, "", err
			}
			copy(blk.Data, want)
			h, err := r.factory.WithFree(blk.Data, func(ctx any) {
				r.frees.Add(1)
				r.track.Free(ctx.(rcstring.Block))
			}, blk)
			if err != nil {
				r.track.Free(blk)
				return nil, "", err
			}
			return h, want, nil
		}},
		{"format", rcstr.StorageCopied, func(round int) (*rcstr.Handle, string, error) {
			want := fmt.Sprintf("formatted-%d-%x", round, round*31)
			h, err := r.factory.Formatf("formatted-%d-%x", round, round*31)
			return h, want, err
		}},
		{"recreate", rcstr.StorageCopied, func(round int) (*rcstr.Handle, string, error) {
			if r.seed == nil {
				h, err := r.factory.Formatf("recreated-from-%p", r)
				if err != nil {
					return nil, "", err
				}
				r.seed = h
			}
			h, err := r.factory.Recreate(r.seed)
			if err != nil {
				return nil, "", err
			}
			if r.seed.Refs() != 1 {
				h.Release()
				return nil, "", errors.InvalidData(errors.PhaseCreate, "recreate changed the source count")
			}
			return h, r.seed.Value().String(), nil
		}},
	}
}

// cycle publishes one string and lets the workers share it.
func (r *runner) cycle(round int, src source) error {
	h, want, err := src.build(round)
	if err != nil {
		return err
	}
	r.track.watch(h, src.storage)

	if got := h.Value().Storage(); got != src.storage {
		h.Release()
		return errors.InvalidData(errors.PhaseCreate,
			fmt.Sprintf("storage %s, want %s", got, src.storage))
	}

	var shared rcstr.Slot
	shared.Adopt(h)

	var (
		wg         sync.WaitGroup
		mismatches atomic.Int64
	)
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var mine rcstr.Slot
			for i := 0; i < r.cfg.Shares; i++ {
				mine.Assign(shared.Load())
				if mine.Load().Value().String() != want {
					mismatches.Add(1)
				}
				r.shares.Add(1)
			}
			mine.Clear()
		}()
	}
	wg.Wait()

	if n := mismatches.Load(); n > 0 {
		shared.Clear()
		return errors.InvalidData(errors.PhaseCreate,
			fmt.Sprintf("%d shared reads did not match %q", n, want))
	}
	if refs := shared.Load().Refs(); refs != 1 {
		shared.Clear()
		return errors.InvalidData(errors.PhaseRelease,
			fmt.Sprintf("%d references left after workers finished", refs))
	}

	shared.Clear()
	return nil
}
