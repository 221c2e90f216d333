package round

import (
	"context"
	"math/rand/v2"
	"strconv"

	"reelsim/internal/game"
	"reelsim/internal/profile"
	"reelsim/internal/simerr"
	"reelsim/internal/win"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Driver states.
const (
	StateDrawing    = "drawing"
	StateEvaluating = "evaluating"
	StateCascading  = "cascading"
	StateSettling   = "settling"
	StateDone       = "done"
)

const (
	evEvaluate = "evaluate"
	evCascade  = "cascade"
	evSettle   = "settle"
	evDraw     = "draw"
	evFinish   = "finish"
)

// seedSequence is the fixed PCG stream selector paired with every round seed.
const seedSequence = 0x9e3779b97f4a7c15

// Request asks the driver for one round.
type Request struct {
	ID      uint64
	Seed    uint64
	Profile *profile.Profile
	Rule    *profile.Rule
}

// Driver plays rounds of one game. A Driver is owned by a single worker.
type Driver struct {
	game *game.Game
	eval win.Evaluator
	log  *zap.Logger
	fsm  *fsm.FSM

	// per round
	r       *Round
	req     Request
	rng     *rand.Rand
	reels   *game.ReelSet
	last    *win.Result
	scatter string
}

// NewDriver returns a driver for g. A nil logger discards output.
func NewDriver(g *game.Game, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{
		game: g,
		eval: win.New(g),
		log:  logger,
	}
	d.scatter, _ = g.ScatterCode()
	d.fsm = fsm.NewFSM(
		StateDrawing,
		fsm.Events{
			{Name: evEvaluate, Src: []string{StateDrawing, StateCascading}, Dst: StateEvaluating},
			{Name: evCascade, Src: []string{StateEvaluating}, Dst: StateCascading},
			{Name: evSettle, Src: []string{StateEvaluating, StateCascading}, Dst: StateSettling},
			{Name: evDraw, Src: []string{StateSettling}, Dst: StateDrawing},
			{Name: evFinish, Src: []string{StateSettling}, Dst: StateDone},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if ce := d.log.Check(zap.DebugLevel, "round transition"); ce != nil {
					ce.Write(zap.Uint64("round", d.r.ID), zap.String("from", e.Src), zap.String("to", e.Dst))
				}
			},
		},
	)
	return d
}

// Play runs one round to completion. Rounds always finish; errors are configuration
// problems and carry the seed needed to replay the round.
func (d *Driver) Play(ctx context.Context, req Request) (*Round, error) {
	d.req = req
	d.rng = rand.New(rand.NewPCG(req.Seed, seedSequence))
	d.r = &Round{
		ID:         req.ID,
		Seed:       req.Seed,
		Profile:    req.Profile.Name,
		Criterion:  req.Rule.Name,
		Phase:      game.BaseGame,
		Overlay:    game.NewOverlay(d.game.Rows),
		Multiplier: 1,
	}
	d.last = nil
	d.fsm.SetState(StateDrawing)

	for d.fsm.Current() != StateDone {
		next, err := d.step()
		if err != nil {
			return nil, simerr.Round(err, req.Profile.Name, req.Rule.Name, req.Seed, req.ID)
		}
		if err := d.fsm.Event(ctx, next); err != nil {
			return nil, simerr.Round(err, req.Profile.Name, req.Rule.Name, req.Seed, req.ID)
		}
	}
	return d.r, nil
}

// State is the current state of the machine.
func (d *Driver) State() string { return d.fsm.Current() }

func (d *Driver) step() (string, error) {
	switch d.fsm.Current() {
	case StateDrawing:
		return d.draw()
	case StateEvaluating:
		return d.evaluate()
	case StateCascading:
		return d.cascade()
	case StateSettling:
		return d.settle()
	}
	return "", simerr.Configuration("driver stepped in state %s", d.fsm.Current())
}

func (d *Driver) draw() (string, error) {
	r := d.r
	name := d.req.Rule.ReelSets[r.Phase].Pick(d.rng)
	rs, err := d.game.ReelSet(name)
	if err != nil {
		return "", err
	}
	d.reels = rs
	r.Grid = rs.Draw(d.game, d.rng)
	r.Grid.Each(func(p game.Position, s game.Symbol) {
		if s.Kind == game.Wild || s.Kind == game.Multiplier {
			r.Grid.Set(p, d.withMultiplier(s))
		}
	})
	if r.Phase == game.BaseGame && d.req.Rule.ForceFeature && d.req.Rule.Scatters != nil {
		if err := d.injectScatters(d.req.Rule.Scatters.Pick(d.rng)); err != nil {
			return "", err
		}
	}
	r.SpinWin = 0
	r.Cascades = 0
	r.Multiplier = d.game.StreakMultiplier(r.Phase, 0)
	r.emit(Event{Type: EventReveal, Phase: r.Phase, Board: r.Grid.Codes()})
	return evEvaluate, nil
}

func (d *Driver) withMultiplier(s game.Symbol) game.Symbol {
	if w := d.req.Rule.Mults[d.r.Phase]; w != nil {
		s.Multiplier = w.Pick(d.rng)
	}
	return s
}

// injectScatters places n scatters on n distinct reels, leaving cells that already hold one.
func (d *Driver) injectScatters(n int) error {
	if d.scatter == "" {
		return simerr.Configuration("game %s has no scatter symbol to force a feature", d.game.ID)
	}
	g := d.r.Grid
	reels := d.rng.Perm(g.Reels())
	for _, reel := range reels {
		if n == 0 {
			break
		}
		hasScatter := false
		for _, s := range g.Reel(reel) {
			if s.IsScatter() {
				hasScatter = true
				break
			}
		}
		if !hasScatter {
			g.Set(game.Position{Reel: reel, Row: d.rng.IntN(g.Rows(reel))}, d.game.Symbol(d.scatter))
		}
		n--
	}
	return nil
}

func (d *Driver) evaluate() (string, error) {
	r := d.r
	in := win.Input{Multiplier: r.Multiplier}
	if d.game.Overlay.Enabled(r.Phase) {
		in.Overlay = r.Overlay
	}
	res, err := d.eval.Evaluate(r.Grid, in)
	if err != nil {
		return "", err
	}
	d.last = res
	if res.Empty() {
		return evSettle, nil
	}

	amount := res.Total
	if limit := d.req.Profile.WinCap; limit > 0 && r.Total()+amount >= limit {
		amount = limit - r.Total()
		r.Capped = true
	}
	r.SpinWin += amount
	r.emit(Event{Type: EventWinInfo, Phase: r.Phase, Wins: res.Wins, Amount: amount, Multiplier: r.Multiplier})
	for _, w := range res.Wins {
		r.record(winKey(w, r.Phase))
	}
	if r.Capped {
		return evSettle, nil
	}
	return evCascade, nil
}

func (d *Driver) cascade() (string, error) {
	r := d.r
	r.Cascades++
	if r.Cascades > d.game.MaxCascades {
		return "", simerr.Configuration("cascade did not terminate after %d steps", d.game.MaxCascades)
	}
	positions := d.last.Positions()
	if d.game.Overlay.Enabled(r.Phase) {
		for _, p := range positions {
			r.Overlay.Touch(p, d.game.Overlay.Cap)
		}
		r.emit(Event{Type: EventOverlay, Phase: r.Phase, Overlay: r.Overlay.Clone()})
	}
	r.Multiplier = d.game.StreakMultiplier(r.Phase, r.Cascades)
	if !d.game.Tumble {
		return evSettle, nil
	}
	r.Grid = r.Grid.Tumble(positions, func(reel int) game.Symbol {
		s := d.game.Symbol(d.reels.Reels[reel].Pick(d.rng))
		if s.Kind == game.Wild || s.Kind == game.Multiplier {
			s = d.withMultiplier(s)
		}
		return s
	})
	r.emit(Event{Type: EventTumble, Phase: r.Phase, Positions: positions, Board: r.Grid.Codes()})
	return evEvaluate, nil
}

func (d *Driver) settle() (string, error) {
	r := d.r
	limit := d.req.Profile.WinCap

	if r.SpinWin > 0 && !r.Capped {
		var sum int64
		r.Grid.Each(func(_ game.Position, s game.Symbol) {
			if s.Kind == game.Multiplier {
				sum += s.Multiplier
			}
		})
		if sum > 1 {
			extra := r.SpinWin * (sum - 1)
			if limit > 0 && r.Total()+extra >= limit {
				extra = limit - r.Total()
				r.Capped = true
			}
			r.SpinWin += extra
			r.emit(Event{Type: EventBoardMultiplier, Phase: r.Phase, Multiplier: sum, Amount: r.SpinWin})
		}
	}

	if r.SpinWin > 0 {
		r.emit(Event{Type: EventSetWin, Phase: r.Phase, Amount: r.SpinWin, Level: d.game.WinLevel(r.SpinWin)})
	}
	if r.Phase == game.FreeGame {
		r.FreeWin += r.SpinWin
	} else {
		r.BaseWin += r.SpinWin
	}
	r.SpinWin = 0

	if r.Capped {
		r.emit(Event{Type: EventWinCap, Amount: r.Total()})
		r.record(ForceKey{"wincap": "true", "gametype": string(r.Phase)})
		return d.finish()
	}

	scatters := r.Grid.Count(func(s game.Symbol) bool { return s.IsScatter() })
	if spins := d.game.FreeGame.Spins(scatters); spins > 0 {
		key := ForceKey{"symbol": "scatter", "kind": strconv.Itoa(scatters), "gametype": string(r.Phase)}
		switch {
		case r.Phase == game.BaseGame:
			r.Feature = true
			r.FreeSpins = spins
			r.Phase = game.FreeGame
			r.emit(Event{Type: EventFreeSpinTrigger, Count: scatters, Spins: spins, Total: spins})
			r.record(key)
		case d.game.FreeGame.Retrigger:
			r.FreeSpins += spins
			r.emit(Event{Type: EventRetrigger, Count: scatters, Spins: spins, Total: r.FreeSpinsPlayed + r.FreeSpins})
			r.record(key)
		}
	}

	if r.Feature && r.FreeSpins == 0 && d.req.Rule.ForceWinCap && limit > 0 && r.Total() < limit {
		r.FreeSpins = 1
		r.emit(Event{Type: EventExtend, Spins: 1, Total: r.FreeSpinsPlayed + 1})
	}
	if r.Feature && r.FreeSpins > 0 {
		if r.FreeSpinsPlayed >= d.game.MaxFeatureSpins {
			return "", simerr.Configuration("feature did not terminate after %d spins", d.game.MaxFeatureSpins)
		}
		r.FreeSpins--
		r.FreeSpinsPlayed++
		r.emit(Event{Type: EventFreeSpin, Spins: r.FreeSpinsPlayed, Total: r.FreeSpinsPlayed + r.FreeSpins})
		return evDraw, nil
	}
	return d.finish()
}

func (d *Driver) finish() (string, error) {
	r := d.r
	r.Payout = r.BaseWin + r.FreeWin
	r.emit(Event{Type: EventFinalWin, Amount: r.Payout})
	return evFinish, nil
}
