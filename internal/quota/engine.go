// Package quota fills every acceptance criterion of a bet mode with exactly its share of rounds.
package quota

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"reelsim/internal/game"
	"reelsim/internal/outcome"
	"reelsim/internal/profile"
	"reelsim/internal/round"
	"reelsim/internal/simerr"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 1000
	DefaultMaxAttempts = 10000
)

// Sink receives accepted rounds in slot order, one batch at a time. Calls are serialized.
type Sink interface {
	Consume(rounds []*round.Round) error
}

// Options tune one run.
type Options struct {
	Rounds      int    // total rounds to accept
	Workers     int    // 0 means GOMAXPROCS
	BatchSize   int    // slots per flush
	MaxAttempts int    // draws per slot before exhaustion
	Iteration   uint64 // optimizer iteration, mixed into every seed
	Sinks       []Sink
	Progress    func(done, total int)
}

func (o *Options) normalize() error {
	if o.Rounds <= 0 {
		return simerr.Configuration("round count must be positive, got %d", o.Rounds)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// Engine runs bet modes of one game.
type Engine struct {
	game *game.Game
	log  *zap.Logger
}

// New returns an engine for g. A nil logger discards output.
func New(g *game.Game, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{game: g, log: logger}
}

// Run accepts opts.Rounds rounds for p. Slots are assigned to criteria up front by quota;
// a slot redraws until its round classifies, in declaration order, as the slot's criterion.
// The result does not depend on the worker count.
func (e *Engine) Run(ctx context.Context, p *profile.Profile, opts Options) (*Result, error) {
	if p.Game != e.game {
		return nil, simerr.Configuration("bet mode %s is compiled for game %s", p.Name, p.Game.ID)
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	counts, err := p.Allocate(opts.Rounds)
	if err != nil {
		return nil, err
	}

	r := &run{
		e:        e,
		p:        p,
		opts:     opts,
		log:      e.log.With(zap.String("profile", p.Name), zap.Uint64("iteration", opts.Iteration)),
		bounds:   make([]int, len(counts)),
		tokens:   make([]atomic.Int64, len(counts)),
		attempts: make([]atomic.Uint64, len(counts)),
		table:    outcome.NewTable(opts.Rounds),
		pending:  make(map[int]*batch),
	}
	sum := 0
	for i, n := range counts {
		sum += n
		r.bounds[i] = sum
		r.tokens[i].Store(int64(n))
	}

	start := time.Now()
	r.log.Info("quota run started",
		zap.Int("rounds", opts.Rounds), zap.Int("workers", opts.Workers), zap.Ints("quotas", counts))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job)
	g.Go(func() error {
		defer close(jobs)
		for i, lo := 0, 0; lo < opts.Rounds; i, lo = i+1, lo+opts.BatchSize {
			select {
			case jobs <- job{index: i, lo: lo, hi: min(lo+opts.BatchSize, opts.Rounds)}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error { return r.work(gctx, jobs) })
	}
	if err := g.Wait(); err != nil {
		r.log.Error("quota run failed", zap.Error(err))
		return nil, err
	}

	res := r.result(counts, time.Since(start))
	r.log.Info("quota run finished",
		zap.Duration("elapsed", res.Elapsed), zap.Uint64("draws", res.Draws), zap.Int64("fallbacks", res.Fallbacks))
	return res, nil
}

type job struct {
	index  int
	lo, hi int
}

type batch struct {
	rounds  []*round.Round
	records []outcome.Record
}

type run struct {
	e    *Engine
	p    *profile.Profile
	opts Options
	log  *zap.Logger

	bounds    []int // bounds[c] is one past the last slot of rule c
	tokens    []atomic.Int64
	attempts  []atomic.Uint64
	fallbacks atomic.Int64

	mu      sync.Mutex
	table   *outcome.Table
	pending map[int]*batch
	next    int
	done    int
}

func (r *run) work(ctx context.Context, jobs <-chan job) error {
	d := round.NewDriver(r.e.game, r.log)
	for j := range jobs {
		b := &batch{
			rounds:  make([]*round.Round, 0, j.hi-j.lo),
			records: make([]outcome.Record, 0, j.hi-j.lo),
		}
		for slot := j.lo; slot < j.hi; slot++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			rd, err := r.fill(ctx, d, slot)
			if err != nil {
				return err
			}
			b.rounds = append(b.rounds, rd)
			b.records = append(b.records, outcome.Record{
				ID:        rd.ID,
				Payout:    rd.Payout,
				Criterion: rd.Criterion,
				Feature:   rd.Feature,
			})
		}
		if err := r.flush(j.index, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) ruleIndex(slot int) int {
	return sort.SearchInts(r.bounds, slot+1)
}

// fill draws rounds for one slot until one is accepted. After MaxAttempts rejections a forced
// rule falls back to its own predicate for another MaxAttempts draws; an unforced rule fails.
// A fallback round still never matches an earlier non-catch-all rule.
func (r *run) fill(ctx context.Context, d *round.Driver, slot int) (*round.Round, error) {
	c := r.ruleIndex(slot)
	rule := r.p.Rules[c]
	limit := r.opts.MaxAttempts
	var seed uint64
	for attempt := 0; attempt < 2*limit; attempt++ {
		fallback := attempt >= limit
		if attempt == limit {
			if !rule.Forced() {
				return nil, simerr.Exhausted(r.p.Name, rule.Name, attempt, seed)
			}
			r.fallbacks.Add(1)
			r.log.Warn("rejection sampling exhausted, accepting on the criterion predicate",
				zap.String("criterion", rule.Name), zap.Int("slot", slot), zap.Uint64("seed", seed))
		}
		seed = Seed(r.p.Name, r.opts.Iteration, slot, attempt)
		r.attempts[c].Add(1)
		rd, err := d.Play(ctx, round.Request{ID: uint64(slot) + 1, Seed: seed, Profile: r.p, Rule: rule})
		if err != nil {
			return nil, err
		}
		if !r.accepts(rule, rd, fallback) {
			continue
		}
		if !r.claim(c) {
			return nil, simerr.Configuration("criterion %q of %s accepted more rounds than its quota", rule.Name, r.p.Name)
		}
		return rd, nil
	}
	return nil, simerr.Exhausted(r.p.Name, rule.Name, 2*limit, seed)
}

func (r *run) accepts(rule *profile.Rule, rd *round.Round, fallback bool) bool {
	if fallback {
		return r.p.Admits(rule, rd.Payout, rd.Feature)
	}
	first, ok := r.p.Classify(rd.Payout, rd.Feature)
	return ok && first == rule
}

func (r *run) claim(c int) bool {
	for {
		left := r.tokens[c].Load()
		if left <= 0 {
			return false
		}
		if r.tokens[c].CompareAndSwap(left, left-1) {
			return true
		}
	}
}

// flush hands batches to the table and sinks in batch order, holding early arrivals back.
func (r *run) flush(index int, b *batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[index] = b
	for {
		nb, ok := r.pending[r.next]
		if !ok {
			return nil
		}
		delete(r.pending, r.next)
		r.next++
		r.table.Append(nb.records...)
		for _, s := range r.opts.Sinks {
			if err := s.Consume(nb.rounds); err != nil {
				return fmt.Errorf("consume batch %d: %w", r.next-1, err)
			}
		}
		r.done += len(nb.records)
		if ce := r.log.Check(zap.DebugLevel, "batch flushed"); ce != nil {
			ce.Write(zap.Int("batch", r.next-1), zap.Int("done", r.done))
		}
		if r.opts.Progress != nil {
			r.opts.Progress(r.done, r.opts.Rounds)
		}
	}
}
