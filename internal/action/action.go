package action

import "fmt"

type Kind string

const (
	KindProduce Kind = "produce"
	KindMove    Kind = "move"
	KindAttack  Kind = "attack"
)

var Kinds = []Kind{KindProduce, KindMove, KindAttack}

func (k Kind) IsValid() bool {
	switch k {
	case KindProduce, KindMove, KindAttack:
		return true
	}
	return false
}

// Action is one player order for the current turn. The set of implementations
// is closed: only Produce, Move and Attack satisfy it.
type Action interface {
	Kind() Kind
	Player() string
	sealed()
}

// Produce buys an item and queues it at a location the player owns.
type Produce struct {
	PlayerID   string
	ItemID     string
	LocationID string
}

// Move relocates units to a cell within their movement range.
type Move struct {
	PlayerID         string
	UnitIDs          []string
	TargetLocationID string
}

// Attack engages every foreign unit at the target location.
type Attack struct {
	PlayerID         string
	UnitIDs          []string
	TargetLocationID string
}

func (Produce) Kind() Kind { return KindProduce }
func (Move) Kind() Kind    { return KindMove }
func (Attack) Kind() Kind  { return KindAttack }

func (a Produce) Player() string { return a.PlayerID }
func (a Move) Player() string    { return a.PlayerID }
func (a Attack) Player() string  { return a.PlayerID }

func (Produce) sealed() {}
func (Move) sealed()    {}
func (Attack) sealed()  {}

// Describe renders an action for logs and error messages.
func Describe(a Action) string {
	switch a := a.(type) {
	case Produce:
		return fmt.Sprintf("produce %s at %s", a.ItemID, a.LocationID)
	case Move:
		return fmt.Sprintf("move %v to %s", a.UnitIDs, a.TargetLocationID)
	case Attack:
		return fmt.Sprintf("attack %s with %v", a.TargetLocationID, a.UnitIDs)
	default:
		panic(fmt.Sprintf("action: unhandled kind %T", a))
	}
}

// Clone returns a copy that shares no slices with a.
func Clone(a Action) Action {
	switch a := a.(type) {
	case Produce:
		return a
	case Move:
		a.UnitIDs = append([]string(nil), a.UnitIDs...)
		return a
	case Attack:
		a.UnitIDs = append([]string(nil), a.UnitIDs...)
		return a
	default:
		panic(fmt.Sprintf("action: unhandled kind %T", a))
	}
}

// CloneAll clones every action of a batch.
func CloneAll(batch []Action) []Action {
	out := make([]Action, len(batch))
	for i, a := range batch {
		out[i] = Clone(a)
	}
	return out
}
