package game

import (
	"fmt"
	"strings"
)

// Kind is the behavior class of a symbol.
type Kind uint8

const (
	Regular    Kind = iota // 普通符号
	Wild                   // 百搭
	Scatter                // 夺宝
	Multiplier             // 倍数符号
	Blank                  // 空白
)

var kindNames = [...]string{"regular", "wild", "scatter", "multiplier", "blank"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a definition string onto a Kind. An empty string is Regular.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return Regular, nil
	}
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(i), nil
		}
	}
	return Regular, fmt.Errorf("unknown symbol kind %q", s)
}

// Symbol is one drawn cell. Multiplier is only meaningful for wilds and multiplier symbols.
type Symbol struct {
	Code       string `json:"name"`
	Kind       Kind   `json:"-"`
	Multiplier int64  `json:"multiplier,omitempty"`
}

func (s Symbol) IsWild() bool    { return s.Kind == Wild }
func (s Symbol) IsScatter() bool { return s.Kind == Scatter }

// Weight is how many matches the symbol is worth on its reel. Wilds carrying a multiplier
// count that many times, everything else counts once.
func (s Symbol) Weight() int64 {
	if s.Kind == Wild && s.Multiplier > 1 {
		return s.Multiplier
	}
	return 1
}

func (s Symbol) String() string {
	if s.Multiplier > 1 {
		return fmt.Sprintf("%s(x%d)", s.Code, s.Multiplier)
	}
	return s.Code
}

// SymbolDef declares a symbol in the game definition.
type SymbolDef struct {
	Code       string
	Kind       Kind
	NonPaying  bool
	Multiplier int64 // default value for multiplier symbols without a weight table
}

// Pays reports whether the definition expects a paytable entry.
func (d SymbolDef) Pays() bool {
	return d.Kind == Regular && !d.NonPaying
}

// Position addresses a grid cell. Row 0 is the top of the reel.
type Position struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}
