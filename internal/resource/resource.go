package resource

import "fmt"

// Kind names one of the four currencies tracked by an Amount.
type Kind string

const (
	KindGold       Kind = "gold"
	KindIron       Kind = "iron"
	KindGas        Kind = "gas"
	KindDarkMatter Kind = "darkMatter"
)

// Kinds lists every currency in a fixed order.
var Kinds = []Kind{KindGold, KindIron, KindGas, KindDarkMatter}

func (k Kind) IsValid() bool {
	switch k {
	case KindGold, KindIron, KindGas, KindDarkMatter:
		return true
	default:
		return false
	}
}

// Amount is a fixed-key resource vector. Arithmetic is component-wise.
type Amount struct {
	Gold       float64 `json:"gold" yaml:"gold"`
	Iron       float64 `json:"iron" yaml:"iron"`
	Gas        float64 `json:"gas" yaml:"gas"`
	DarkMatter float64 `json:"darkMatter" yaml:"darkMatter"`
}

// Zero returns the empty vector.
func Zero() Amount {
	return Amount{}
}

func Add(a, b Amount) Amount {
	return Amount{
		Gold:       a.Gold + b.Gold,
		Iron:       a.Iron + b.Iron,
		Gas:        a.Gas + b.Gas,
		DarkMatter: a.DarkMatter + b.DarkMatter,
	}
}

func Subtract(a, b Amount) Amount {
	return Amount{
		Gold:       a.Gold - b.Gold,
		Iron:       a.Iron - b.Iron,
		Gas:        a.Gas - b.Gas,
		DarkMatter: a.DarkMatter - b.DarkMatter,
	}
}

// GE reports whether a dominates b: every component of a-b is non-negative.
func GE(a, b Amount) bool {
	return Subtract(a, b).NonNegative()
}

// NonNegative reports whether every component is >= 0.
func (a Amount) NonNegative() bool {
	return a.Gold >= 0 && a.Iron >= 0 && a.Gas >= 0 && a.DarkMatter >= 0
}

// Get returns the component for k, or 0 for an unknown kind.
func (a Amount) Get(k Kind) float64 {
	switch k {
	case KindGold:
		return a.Gold
	case KindIron:
		return a.Iron
	case KindGas:
		return a.Gas
	case KindDarkMatter:
		return a.DarkMatter
	default:
		return 0
	}
}

// Shortfall returns, per kind, how much of b is missing from a. Zero when GE(a, b).
func Shortfall(a, b Amount) Amount {
	d := Subtract(b, a)
	return Amount{
		Gold:       max(d.Gold, 0),
		Iron:       max(d.Iron, 0),
		Gas:        max(d.Gas, 0),
		DarkMatter: max(d.DarkMatter, 0),
	}
}

func (a Amount) String() string {
	return fmt.Sprintf("gold=%g iron=%g gas=%g darkMatter=%g", a.Gold, a.Iron, a.Gas, a.DarkMatter)
}
