// Package model defines the data model for the card game session server:
// the static card catalog, the game and player aggregates held by the
// consistency cache, and the store error taxonomy.
package model

import "time"

// GameState is the lifecycle state of a game. Transitions only move
// forward: waiting -> playing -> finished.
type GameState string

const (
	StateWaiting  GameState = "waiting"
	StatePlaying  GameState = "playing"
	StateFinished GameState = "finished"
)

// Player represents one seat in a game.
// Order is the zero-based turn index; it defaults to 0 on join and is
// reassigned wholesale when the round is dealt.
type Player struct {
	ID        int64  `db:"id"`
	PublicID  string `db:"public_id"`
	GameID    int64  `db:"game_id"`
	Name      string `db:"name"`
	Tokens    int    `db:"tokens"`
	Protected bool   `db:"protected"`
	Order     int    `db:"turn_order"`
	Hand      []Card
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Game is the aggregate snapshot of one game session: the game row plus
// its host, its players ordered by turn index, the undealt deck and the
// discard pile in the order cards left play.
type Game struct {
	ID           int64     `db:"id"`
	PublicID     string    `db:"public_id"`
	State        GameState `db:"state"`
	HostPlayerID int64     `db:"host_player_id"`
	PlayerTurn   int       `db:"player_turn"`
	Host         Player
	Players      []Player
	Deck         []Card
	Discarded    []Card
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Clone returns a deep copy of the player, including the hand.
func (p Player) Clone() Player {
	out := p
	if p.Hand != nil {
		out.Hand = make([]Card, len(p.Hand))
		copy(out.Hand, p.Hand)
	}
	return out
}

// Clone returns a deep copy of the game snapshot. The cache hands clones
// to callers and listeners so no caller can mutate cached state.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.Host = g.Host.Clone()
	if g.Players != nil {
		out.Players = make([]Player, len(g.Players))
		for i, p := range g.Players {
			out.Players[i] = p.Clone()
		}
	}
	if g.Deck != nil {
		out.Deck = make([]Card, len(g.Deck))
		copy(out.Deck, g.Deck)
	}
	if g.Discarded != nil {
		out.Discarded = make([]Card, len(g.Discarded))
		copy(out.Discarded, g.Discarded)
	}
	return &out
}

// PlayerByID returns the player with the given durable id, if seated.
func (g *Game) PlayerByID(id int64) (Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
