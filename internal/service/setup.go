// Package service implements the game setup operations exposed to the
// transport layer: creating, joining, starting, reading and subscribing
// to games.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"love-letter-server/internal/deck"
	"love-letter-server/internal/model"
	"love-letter-server/internal/repository"
	"love-letter-server/internal/store"
)

// MaxPlayerNameLength bounds display names at this boundary. The cache
// does not re-validate.
const MaxPlayerNameLength = 25

// Errors for game setup operations.
var (
	ErrNameTooLong        = fmt.Errorf("name must be %d characters or less", MaxPlayerNameLength)
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrNotEnoughPlayers   = errors.New("need at least 2 players to start the game")
)

// SetupService drives game setup against the consistency cache and the
// deal engine.
type SetupService struct {
	store *store.Store

	// rngMu serializes draws; *rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewSetupService creates a new SetupService. The rng seeds every deal;
// tests inject a deterministic source.
func NewSetupService(st *store.Store, rng *rand.Rand) *SetupService {
	return &SetupService{store: st, rng: rng}
}

// CreateGame creates a new game in the waiting state hosted by a player
// with the given name.
func (s *SetupService) CreateGame(ctx context.Context, hostName string) (*model.Game, error) {
	if len(hostName) > MaxPlayerNameLength {
		return nil, ErrNameTooLong
	}

	game, err := s.store.CreateGame(ctx, hostName)
	if err != nil {
		return nil, err
	}

	log.Info().Str("game", game.PublicID).Str("host", hostName).Msg("game created")
	return game, nil
}

// JoinGame seats a new player in a waiting game.
func (s *SetupService) JoinGame(ctx context.Context, publicID, playerName string) (*model.Game, *model.Player, error) {
	if len(playerName) > MaxPlayerNameLength {
		return nil, nil, ErrNameTooLong
	}

	game, err := s.store.GetOrFetch(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	if game == nil {
		return nil, nil, model.NewStoreError(model.ErrGameNotFound)
	}
	if game.State != model.StateWaiting {
		return nil, nil, ErrGameAlreadyStarted
	}

	return s.store.AddPlayerToGame(ctx, publicID, playerName)
}

// StartGame deals the round and transitions the game to playing: it
// shuffles the deck, sets cards aside face up, assigns a random turn
// order, deals one card to each player and persists the whole dealt
// state as one transaction. A game with fewer than 2 players is rejected
// before the deal engine runs.
func (s *SetupService) StartGame(ctx context.Context, publicID string) error {
	game, err := s.store.GetOrFetch(ctx, publicID)
	if err != nil {
		return err
	}
	if game == nil {
		return model.NewStoreError(model.ErrGameNotFound)
	}
	if game.State != model.StateWaiting {
		return ErrGameAlreadyStarted
	}
	if len(game.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	playerIDs := make([]int64, len(game.Players))
	for i, p := range game.Players {
		playerIDs[i] = p.ID
	}

	s.rngMu.Lock()
	dealt, err := deck.InitializeRound(s.rng, playerIDs)
	s.rngMu.Unlock()
	if err != nil {
		return err
	}

	if err := s.store.InitGame(ctx, publicID, roundInit(game.ID, dealt)); err != nil {
		return err
	}

	log.Info().Str("game", publicID).Int("players", len(playerIDs)).Msg("game started")
	return nil
}

// SubscribeGame attaches a long-lived listener to the game. The listener
// immediately receives the current snapshot.
func (s *SetupService) SubscribeGame(ctx context.Context, publicID string, onChange func(*model.Game)) (store.Releasable, error) {
	return s.store.Subscribe(ctx, publicID, onChange)
}

// GetGame returns the current snapshot of the game, or nil when no such
// game exists.
func (s *SetupService) GetGame(ctx context.Context, publicID string) (*model.Game, error) {
	return s.store.GetOrFetch(ctx, publicID)
}

// roundInit converts a deal result into the persistence parameters.
func roundInit(gameID int64, dealt *deck.DealResult) repository.RoundInit {
	seating := make([]repository.PlayerSetup, len(dealt.PlayerOrderAndHand))
	for i, ph := range dealt.PlayerOrderAndHand {
		seating[i] = repository.PlayerSetup{
			PlayerID: ph.PlayerID,
			Hand:     cardTypes(ph.Hand),
		}
	}
	return repository.RoundInit{
		GameID:    gameID,
		Seating:   seating,
		Deck:      cardTypes(dealt.Deck),
		Discarded: cardTypes(dealt.Discarded),
	}
}

func cardTypes(cards []model.Card) []model.CardType {
	out := make([]model.CardType, len(cards))
	for i, c := range cards {
		out[i] = c.Type
	}
	return out
}
