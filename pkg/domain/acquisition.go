package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrAcquisitionTarget is returned when an acquisition does not name exactly
// one of concept_item_id, beast_pet_id or custom_name.
var ErrAcquisitionTarget = errors.New("exactly one of concept_item_id, beast_pet_id, custom_name must be set")

// MaxCustomNameLen is the custom_name column size, in characters.
const MaxCustomNameLen = 128

// ErrCustomNameTooLong is returned when custom_name exceeds MaxCustomNameLen.
var ErrCustomNameTooLong = fmt.Errorf("custom_name must not exceed %d characters", MaxCustomNameLen)

// AcquisitionTarget is what an EventAcquisition points at. It is one of
// ConceptRef, BeastRef or CustomName.
type AcquisitionTarget interface {
	TargetType() string
}

// ConceptRef targets a ConceptItem.
type ConceptRef struct {
	ConceptItemID int64
}

// BeastRef targets a BeastPet.
type BeastRef struct {
	BeastPetID int64
}

// CustomName targets something that has no record of its own.
type CustomName struct {
	Name string
}

func (ConceptRef) TargetType() string { return "concept_item" }
func (BeastRef) TargetType() string   { return "beast_pet" }
func (CustomName) TargetType() string { return "custom" }

// NewAcquisitionTarget builds a target from the three nullable columns used
// on the wire and in storage.
func NewAcquisitionTarget(conceptItemID, beastPetID *int64, customName *string) (AcquisitionTarget, error) {
	set := 0
	if conceptItemID != nil {
		set++
	}
	if beastPetID != nil {
		set++
	}
	if customName != nil {
		set++
	}
	if set != 1 {
		return nil, ErrAcquisitionTarget
	}
	switch {
	case conceptItemID != nil:
		if *conceptItemID <= 0 {
			return nil, ErrAcquisitionTarget
		}
		return ConceptRef{ConceptItemID: *conceptItemID}, nil
	case beastPetID != nil:
		if *beastPetID <= 0 {
			return nil, ErrAcquisitionTarget
		}
		return BeastRef{BeastPetID: *beastPetID}, nil
	default:
		name := strings.TrimSpace(*customName)
		if name == "" {
			return nil, ErrAcquisitionTarget
		}
		if utf8.RuneCountInString(name) > MaxCustomNameLen {
			return nil, ErrCustomNameTooLong
		}
		return CustomName{Name: name}, nil
	}
}

// TargetColumns flattens t back into the three nullable columns. A nil or
// unknown target yields three nils.
func TargetColumns(t AcquisitionTarget) (conceptItemID, beastPetID *int64, customName *string) {
	switch v := t.(type) {
	case ConceptRef:
		id := v.ConceptItemID
		return &id, nil, nil
	case BeastRef:
		id := v.BeastPetID
		return nil, &id, nil
	case CustomName:
		name := v.Name
		return nil, nil, &name
	}
	return nil, nil, nil
}

// EventAcquisition records that a character obtained something during an
// event.
type EventAcquisition struct {
	ID          int64             `json:"id"`
	BookID      int64             `json:"book_id"`
	EventID     int64             `json:"event_id" validate:"required,gt=0"`
	CharacterID int64             `json:"character_id" validate:"required,gt=0"`
	Kind        AcquisitionKind   `json:"kind" validate:"required,oneof=skill technique beast treasure material other"`
	Target      AcquisitionTarget `json:"-" validate:"-"`
	Quantity    *int              `json:"quantity" validate:"omitempty,gte=0"`
	Notes       *string           `json:"notes"`
}

type acquisitionJSON struct {
	ID            int64           `json:"id"`
	BookID        int64           `json:"book_id"`
	EventID       int64           `json:"event_id"`
	CharacterID   int64           `json:"character_id"`
	Kind          AcquisitionKind `json:"kind"`
	TargetType    string          `json:"target_type,omitempty"`
	ConceptItemID *int64          `json:"concept_item_id"`
	BeastPetID    *int64          `json:"beast_pet_id"`
	CustomName    *string         `json:"custom_name"`
	Quantity      *int            `json:"quantity"`
	Notes         *string         `json:"notes"`
}

// MarshalJSON writes the target as the three flat columns plus target_type.
func (a EventAcquisition) MarshalJSON() ([]byte, error) {
	out := acquisitionJSON{
		ID:          a.ID,
		BookID:      a.BookID,
		EventID:     a.EventID,
		CharacterID: a.CharacterID,
		Kind:        a.Kind,
		Quantity:    a.Quantity,
		Notes:       a.Notes,
	}
	if a.Target != nil {
		out.TargetType = a.Target.TargetType()
	}
	out.ConceptItemID, out.BeastPetID, out.CustomName = TargetColumns(a.Target)
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat columns and rejects payloads that do not set
// exactly one target.
func (a *EventAcquisition) UnmarshalJSON(data []byte) error {
	var in acquisitionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	target, err := NewAcquisitionTarget(in.ConceptItemID, in.BeastPetID, in.CustomName)
	if err != nil {
		return err
	}
	*a = EventAcquisition{
		ID:          in.ID,
		BookID:      in.BookID,
		EventID:     in.EventID,
		CharacterID: in.CharacterID,
		Kind:        in.Kind,
		Target:      target,
		Quantity:    in.Quantity,
		Notes:       in.Notes,
	}
	return nil
}
