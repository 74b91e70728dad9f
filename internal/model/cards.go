package model

// CardType identifies one of the ten character cards in the catalog.
type CardType string

// The ten card types, in ascending value order.
const (
	CardSpy        CardType = "SPY"
	CardGuard      CardType = "GUARD"
	CardPriest     CardType = "PRIEST"
	CardBaron      CardType = "BARON"
	CardHandmaid   CardType = "HANDMAID"
	CardPrince     CardType = "PRINCE"
	CardChancellor CardType = "CHANCELLOR"
	CardKing       CardType = "KING"
	CardCountess   CardType = "COUNTESS"
	CardPrincess   CardType = "PRINCESS"
)

// Card is an immutable catalog entry: the printed value, the rule text
// shown to players, and how many copies of the card exist in the deck.
type Card struct {
	Type             CardType
	Name             string
	Value            int
	ShortDescription string
	FullDescription  []string
	Quantity         int
}

// DeckSize is the total number of cards in a full deck, i.e. the sum of
// all catalog quantities.
const DeckSize = 16

// Cards is the static card catalog. It is fixed at process start and
// never mutated.
var Cards = map[CardType]Card{
	CardSpy: {
		Type:             CardSpy,
		Name:             "Spy",
		Value:            0,
		ShortDescription: "Gain token if alive at end of round and only player to play spy",
		FullDescription: []string{
			"A Spy has no effect when played or discarded.",
			"At the end of the round, if you are the only player still in the round who played or discarded a Spy, you gain one favor token.",
			"This does not count as winning the round; the winner (even if it is you) still gains their token.",
			"Even if you play and/or discard two Spies, you still gain only one token.",
		},
		Quantity: 2,
	},
	CardGuard: {
		Type:             CardGuard,
		Name:             "Guard",
		Value:            1,
		ShortDescription: "Guess a player's hand",
		FullDescription: []string{
			"Choose another player and name a character other than Guard. If the chosen player has that card in their hand, they are out of the round.",
		},
		Quantity: 2,
	},
	CardPriest: {
		Type:             CardPriest,
		Name:             "Priest",
		Value:            2,
		ShortDescription: "Look at a hand",
		FullDescription: []string{
			"Choose another player and secretly look at their hand (without revealing it to anyone else).",
		},
		Quantity: 1,
	},
	CardBaron: {
		Type:             CardBaron,
		Name:             "Baron",
		Value:            3,
		ShortDescription: "Compare hands",
		FullDescription: []string{
			"Choose another player. You and that player secretly compare your hands. Whoever has the lower value card is out of the round.",
			"If there is a tie, neither player is out of the round.",
		},
		Quantity: 2,
	},
	CardHandmaid: {
		Type:             CardHandmaid,
		Name:             "Handmaid",
		Value:            4,
		ShortDescription: "Protection until your next turn",
		FullDescription: []string{
			"Until the start of your next turn, other players cannot choose you for their card effects.",
			"In the rare case that all other players still in the round are protected by a Handmaid when you play a card, do the following:",
			"  - If that card requires you to choose another player (Guard, Priest, Baron, King), your card is played with no effect.",
			"  - If that card requires you to choose any player (Prince), then you must choose yourself for the effect.",
		},
		Quantity: 2,
	},
	CardPrince: {
		Type:             CardPrince,
		Name:             "Prince",
		Value:            5,
		ShortDescription: "One player discards their hand",
		FullDescription: []string{
			"Choose any player (including yourself). That player discards their hand (without resolving its effect) and draws a new hand.",
			"If the deck is empty, the chosen player draws the facedown set-aside card.",
			"If a player chooses you for the Prince effect, and you are forced to discard the Princess, you are out of the round.",
		},
		Quantity: 2,
	},
	CardChancellor: {
		Type:             CardChancellor,
		Name:             "Chancellor",
		Value:            6,
		ShortDescription: "Draw 2 cards, keep 1, and place 2 at bottom of deck",
		FullDescription: []string{
			"Draw two cards from the deck into your hand. Choose and keep one of the three cards now in your hand, and place the other two facedown on the bottom of the deck in any order.",
			"If there is only one card in the deck, draw it and return one card. If there are no cards left, this card is played with no effect.",
		},
		Quantity: 2,
	},
	CardKing: {
		Type:             CardKing,
		Name:             "King",
		Value:            7,
		ShortDescription: "Trade hands",
		FullDescription: []string{
			"Choose another player and trade hands with that player.",
		},
		Quantity: 1,
	},
	CardCountess: {
		Type:             CardCountess,
		Name:             "Countess",
		Value:            8,
		ShortDescription: "Discard if caught with King or Prince",
		FullDescription: []string{
			"The Countess has no effect when played or discarded.",
			"You must play the Countess as the card for your turn if either the King or a Prince is the other card in your hand.",
			"You can still choose to play the Countess as the card for your turn even if you do not have the King or a Prince.",
			"When you play the Countess, do not reveal your other card; the other players will not know if you were forced to play it or chose to play it.",
			"The Countess's effect does not apply when you draw cards for other effects (Chancellor).",
		},
		Quantity: 1,
	},
	CardPrincess: {
		Type:             CardPrincess,
		Name:             "Princess",
		Value:            9,
		ShortDescription: "Lose if discarded",
		FullDescription: []string{
			"If you either play or discard the Princess for any reason, you are immediately out of the round.",
		},
		Quantity: 1,
	},
}

// CardList lists the catalog entries in ascending value order. The fixed
// order keeps deck construction deterministic under a seeded RNG.
var CardList = []Card{
	Cards[CardSpy],
	Cards[CardGuard],
	Cards[CardPriest],
	Cards[CardBaron],
	Cards[CardHandmaid],
	Cards[CardPrince],
	Cards[CardChancellor],
	Cards[CardKing],
	Cards[CardCountess],
	Cards[CardPrincess],
}

// CardOf looks up a catalog entry by type. The second return is false for
// a card type that is not in the catalog.
func CardOf(t CardType) (Card, bool) {
	c, ok := Cards[t]
	return c, ok
}
