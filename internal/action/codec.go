package action

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var ErrMalformed = errors.New("malformed action")

//go:embed schema/batch.schema.json
var batchSchemaJSON string

var batchSchema = jsonschema.MustCompileString("batch.schema.json", batchSchemaJSON)

// envelope is the wire shape shared by every action kind.
type envelope struct {
	Kind             Kind     `json:"kind"`
	PlayerID         string   `json:"playerId"`
	ItemID           string   `json:"itemId,omitempty"`
	LocationID       string   `json:"locationId,omitempty"`
	UnitIDs          []string `json:"unitIds,omitempty"`
	TargetLocationID string   `json:"targetLocationId,omitempty"`
}

func toEnvelope(a Action) envelope {
	switch a := a.(type) {
	case Produce:
		return envelope{Kind: KindProduce, PlayerID: a.PlayerID, ItemID: a.ItemID, LocationID: a.LocationID}
	case Move:
		return envelope{Kind: KindMove, PlayerID: a.PlayerID, UnitIDs: a.UnitIDs, TargetLocationID: a.TargetLocationID}
	case Attack:
		return envelope{Kind: KindAttack, PlayerID: a.PlayerID, UnitIDs: a.UnitIDs, TargetLocationID: a.TargetLocationID}
	default:
		panic(fmt.Sprintf("action: unhandled kind %T", a))
	}
}

func (e envelope) action() (Action, error) {
	switch e.Kind {
	case KindProduce:
		return Produce{PlayerID: e.PlayerID, ItemID: e.ItemID, LocationID: e.LocationID}, nil
	case KindMove:
		return Move{PlayerID: e.PlayerID, UnitIDs: e.UnitIDs, TargetLocationID: e.TargetLocationID}, nil
	case KindAttack:
		return Attack{PlayerID: e.PlayerID, UnitIDs: e.UnitIDs, TargetLocationID: e.TargetLocationID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, e.Kind)
	}
}

func Marshal(a Action) ([]byte, error) {
	return json.Marshal(toEnvelope(a))
}

func MarshalBatch(batch []Action) ([]byte, error) {
	out := make([]envelope, len(batch))
	for i, a := range batch {
		out[i] = toEnvelope(a)
	}
	return json.Marshal(out)
}

// DecodeBatch parses and schema-checks a JSON array of actions.
func DecodeBatch(raw []byte) ([]Action, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := batchSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var envs []envelope
	if err := json.Unmarshal(raw, &envs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]Action, 0, len(envs))
	for _, e := range envs {
		a, err := e.action()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Batch wraps a slice of actions so it can sit inside larger JSON documents.
type Batch []Action

func (b Batch) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return MarshalBatch(b)
}

func (b *Batch) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*b = nil
		return nil
	}
	decoded, err := DecodeBatch(raw)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Decode parses a single action object.
func Decode(raw []byte) (Action, error) {
	wrapped := make([]byte, 0, len(raw)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, raw...)
	wrapped = append(wrapped, ']')
	batch, err := DecodeBatch(wrapped)
	if err != nil {
		return nil, err
	}
	if len(batch) != 1 {
		return nil, fmt.Errorf("%w: expected one action, got %d", ErrMalformed, len(batch))
	}
	return batch[0], nil
}
