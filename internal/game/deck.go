package game

import (
	"fmt"

	"github.com/jason-s-yu/lacosa/internal/models"
)

// HandSize is the number of cards each player is dealt at the start.
const HandSize = 5

// RepairCard is the action card that restores one point of base health.
const RepairCard = "Riparare la base"

type cardTemplate struct {
	card   models.Card
	copies int
}

// catalog is one full set of cards. BuildDeck replicates it.
var catalog = []cardTemplate{
	{models.Card{Kind: models.CardAction, Name: RepairCard}, 3},
	{models.Card{Kind: models.CardAction, Name: "Cercare nei magazzini"}, 3},
	{models.Card{Kind: models.CardAction, Name: "Sabotare segretamente"}, 3},
	{models.Card{Kind: models.CardAction, Name: "Attaccare un giocatore"}, 3},
	{models.Card{Kind: models.CardEquipment, Name: "Lanciafiamme"}, 2},
	{models.Card{Kind: models.CardEquipment, Name: "Armi da fuoco"}, 2},
	{models.Card{Kind: models.CardEquipment, Name: "Torcia"}, 2},
	{models.Card{Kind: models.CardEquipment, Name: "Strumenti di riparazione"}, 2},
	{models.Card{Kind: models.CardBloodTest, Name: "Test del sangue"}, 4},
	{models.Card{Kind: models.CardEvent, Name: "Evento imprevisto"}, 4},
}

// CatalogSize is the number of cards in one catalog set.
var CatalogSize = func() int {
	n := 0
	for _, t := range catalog {
		n += t.copies
	}
	return n
}()

// Catalog returns the composition of one set as card -> copies.
func Catalog() map[models.Card]int {
	out := make(map[models.Card]int, len(catalog))
	for _, t := range catalog {
		out[t.card] += t.copies
	}
	return out
}

// BuildDeck lays out `sets` copies of the catalog and shuffles them with rng.
// sets below 1 builds a single set.
func BuildDeck(rng Source, sets int) []models.Card {
	if sets < 1 {
		sets = 1
	}
	deck := make([]models.Card, 0, sets*CatalogSize)
	for s := 0; s < sets; s++ {
		for _, t := range catalog {
			for i := 0; i < t.copies; i++ {
				deck = append(deck, t.card)
			}
		}
	}
	Shuffle(rng, deck)
	return deck
}

// Shuffle permutes cards in place; every permutation is equally likely for a uniform rng.
func Shuffle(rng Source, cards []models.Card) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// SetsFor returns how many catalog sets are needed to deal a full hand to n players.
func SetsFor(n int) int {
	need := n * HandSize
	sets := need / CatalogSize
	if need%CatalogSize != 0 {
		sets++
	}
	if sets < 1 {
		sets = 1
	}
	return sets
}

// Deal takes handSize cards from the top (front) of deck for each player in seat order and
// appends them to that player's hand. It returns the remaining deck. When the deck cannot
// cover every hand nothing is dealt.
func Deal(deck []models.Card, players []*models.Player, handSize int) ([]models.Card, error) {
	if need := handSize * len(players); len(deck) < need {
		return deck, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCards, need, len(deck))
	}
	for _, p := range players {
		p.Hand = append(p.Hand, deck[:handSize]...)
		deck = deck[handSize:]
	}
	return deck, nil
}
