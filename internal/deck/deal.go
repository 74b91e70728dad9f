// Package deck implements the round-setup rules: building and shuffling
// the deck, assigning turn order, setting cards aside face up and dealing
// the opening hands.
package deck

import (
	"fmt"
	"math/rand"

	"love-letter-server/internal/model"
)

// twoPlayerSetAside is the number of cards revealed face up before
// dealing in a 2-player game; larger games reveal one. The extra reveals
// compensate for the information asymmetry of a 2-player round.
const (
	twoPlayerSetAside = 3
	defaultSetAside   = 1
)

// InsufficientDeckError is returned when the deck cannot seat the
// requested number of players after the face-up set-aside.
type InsufficientDeckError struct {
	Players   int
	Required  int
	Available int
}

func (e *InsufficientDeckError) Error() string {
	return fmt.Sprintf("deck too small for %d players: need %d cards, have %d",
		e.Players, e.Required, e.Available)
}

// PlayerHand pairs a player with their dealt opening hand.
type PlayerHand struct {
	PlayerID int64
	Hand     []model.Card
}

// DealResult is the outcome of setting up a round.
type DealResult struct {
	// Deck holds the undealt cards, top of the deck first.
	Deck []model.Card
	// Discarded holds the face-up set-aside cards.
	Discarded []model.Card
	// PlayerOrderAndHand lists every player in turn order with their
	// opening hand. Index in this slice is the player's turn index.
	PlayerOrderAndHand []PlayerHand
}

// InitializeRound builds a full shuffled deck from the catalog, draws the
// face-up set-aside pile, assigns a uniformly random turn order and deals
// one card to each player in that order.
//
// Turn order is independent of join order. The rng is injected so tests
// can seed it deterministically.
func InitializeRound(rng *rand.Rand, playerIDs []int64) (*DealResult, error) {
	cards := fullDeck()

	setAside := defaultSetAside
	if len(playerIDs) == 2 {
		setAside = twoPlayerSetAside
	}

	required := setAside + len(playerIDs)
	if len(cards) < required {
		return nil, &InsufficientDeckError{
			Players:   len(playerIDs),
			Required:  required,
			Available: len(cards),
		}
	}

	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	order := make([]int64, len(playerIDs))
	copy(order, playerIDs)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	discarded := cards[:setAside]
	cards = cards[setAside:]

	hands := make([]PlayerHand, len(order))
	for i, id := range order {
		hands[i] = PlayerHand{PlayerID: id, Hand: cards[:1]}
		cards = cards[1:]
	}

	return &DealResult{
		Deck:               cards,
		Discarded:          discarded,
		PlayerOrderAndHand: hands,
	}, nil
}

// fullDeck expands the catalog into its card multiset, one entry per unit
// of each card's quantity.
func fullDeck() []model.Card {
	cards := make([]model.Card, 0, model.DeckSize)
	for _, c := range model.CardList {
		for i := 0; i < c.Quantity; i++ {
			cards = append(cards, c)
		}
	}
	return cards
}
