package round

import (
	"strconv"

	"reelsim/internal/game"
	"reelsim/internal/win"
)

// Event types written to the event log.
const (
	EventReveal          = "reveal"
	EventWinInfo         = "winInfo"
	EventOverlay         = "updateGrid"
	EventTumble          = "tumbleBoard"
	EventBoardMultiplier = "boardMultiplierInfo"
	EventSetWin          = "setWin"
	EventFreeSpinTrigger = "freeSpinTrigger"
	EventRetrigger       = "freeSpinRetrigger"
	EventFreeSpin        = "updateFreeSpin"
	EventExtend          = "freeSpinExtend"
	EventWinCap          = "wincap"
	EventFinalWin        = "finalWin"
)

// Event is one entry of a round's log. Only the fields relevant to Type are set.
type Event struct {
	Index      int             `json:"index"`
	Type       string          `json:"type"`
	Phase      game.Phase      `json:"gameType,omitempty"`
	Board      [][]game.Symbol `json:"board,omitempty"`
	Wins       []*win.Win      `json:"wins,omitempty"`
	Positions  []game.Position `json:"positions,omitempty"`
	Overlay    game.Overlay    `json:"overlay,omitempty"`
	Amount     int64           `json:"amount,omitempty"`
	Multiplier int64           `json:"multiplier,omitempty"`
	Count      int             `json:"count,omitempty"`
	Spins      int             `json:"spins,omitempty"`
	Total      int             `json:"total,omitempty"`
	Level      int             `json:"winLevel,omitempty"`
}

// ForceKey is one searchable fact about a round, for example {symbol: scatter, kind: 4}.
type ForceKey map[string]string

// Round is everything a single simulated round owns. Nothing in it is shared with other rounds.
type Round struct {
	ID        uint64
	Seed      uint64
	Profile   string
	Criterion string

	Phase      game.Phase
	Grid       *game.Grid
	Overlay    game.Overlay
	Multiplier int64
	Cascades   int

	SpinWin int64
	BaseWin int64
	FreeWin int64
	Payout  int64

	Feature         bool
	FreeSpins       int // remaining
	FreeSpinsPlayed int
	Capped          bool

	Events []Event
	Force  []ForceKey
}

// Total is what the round has paid so far.
func (r *Round) Total() int64 {
	return r.BaseWin + r.FreeWin + r.SpinWin
}

func (r *Round) emit(e Event) {
	e.Index = len(r.Events)
	r.Events = append(r.Events, e)
}

func (r *Round) record(k ForceKey) {
	r.Force = append(r.Force, k)
}

func winKey(w *win.Win, phase game.Phase) ForceKey {
	return ForceKey{
		"symbol":   w.Symbol,
		"kind":     strconv.Itoa(w.Count),
		"gametype": string(phase),
	}
}
