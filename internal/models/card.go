package models

// CardKind groups cards by the part of the turn they belong to.
type CardKind string

const (
	CardAction    CardKind = "action"
	CardEquipment CardKind = "equipment"
	CardBloodTest CardKind = "blood_test"
	CardEvent     CardKind = "event"
)

// Card is a single card in a session. Two cards with the same kind and name are interchangeable;
// a deck may hold several copies.
type Card struct {
	Kind CardKind `json:"kind"`
	Name string   `json:"name"`
}
