package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"love-letter-server/internal/model"
	"love-letter-server/internal/repository"
	"love-letter-server/internal/store"
)

// memDB is an in-memory persistence backend for exercising the full
// setup flow through the store.
type memDB struct {
	mu        sync.Mutex
	games     map[string]*model.Game
	initCalls int
	nextID    int64
}

func newMemDB() *memDB {
	return &memDB{games: make(map[string]*model.Game)}
}

func (f *memDB) GetByPublicID(ctx context.Context, publicID string) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game, ok := f.games[publicID]
	if !ok {
		return nil, model.NewStoreError(model.ErrGameNotFound)
	}
	return game.Clone(), nil
}

func (f *memDB) CreateGame(ctx context.Context, hostName string) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	gameID := f.nextID
	f.nextID++
	host := model.Player{
		ID:       f.nextID,
		PublicID: fmt.Sprintf("p%d", f.nextID),
		GameID:   gameID,
		Name:     hostName,
		Hand:     []model.Card{},
	}
	game := &model.Game{
		ID:           gameID,
		PublicID:     fmt.Sprintf("g%d", gameID),
		State:        model.StateWaiting,
		HostPlayerID: host.ID,
		Host:         host,
		Players:      []model.Player{host},
		Deck:         []model.Card{},
		Discarded:    []model.Card{},
	}
	f.games[game.PublicID] = game
	return game.Clone(), nil
}

func (f *memDB) AddPlayer(ctx context.Context, gameID int64, name string) (*model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, game := range f.games {
		if game.ID == gameID {
			f.nextID++
			p := model.Player{
				ID:       f.nextID,
				PublicID: fmt.Sprintf("p%d", f.nextID),
				GameID:   gameID,
				Name:     name,
				Hand:     []model.Card{},
			}
			game.Players = append(game.Players, p)
			return &p, nil
		}
	}
	return nil, model.NewStoreError(model.ErrGameNotFound)
}

func (f *memDB) UpdateGame(ctx context.Context, gameID int64, upd repository.GameUpdate) (*model.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, game := range f.games {
		if game.ID == gameID {
			if upd.State != nil {
				game.State = *upd.State
			}
			if upd.PlayerTurn != nil {
				game.PlayerTurn = *upd.PlayerTurn
			}
			return game.Clone(), nil
		}
	}
	return nil, model.NewStoreError(model.ErrGameNotFound)
}

func (f *memDB) InitGame(ctx context.Context, init repository.RoundInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	for _, game := range f.games {
		if game.ID != init.GameID {
			continue
		}
		for order, seat := range init.Seating {
			for i := range game.Players {
				if game.Players[i].ID == seat.PlayerID {
					game.Players[i].Order = order
					game.Players[i].Hand = toCards(seat.Hand)
				}
			}
		}
		game.Deck = toCards(init.Deck)
		game.Discarded = toCards(init.Discarded)
		game.State = model.StatePlaying
		game.PlayerTurn = 0
		return nil
	}
	return model.NewStoreError(model.ErrGameNotFound)
}

func toCards(types []model.CardType) []model.Card {
	out := make([]model.Card, len(types))
	for i, t := range types {
		out[i] = model.Cards[t]
	}
	return out
}

func newTestService(db *memDB) *SetupService {
	return NewSetupService(store.New(db), rand.New(rand.NewSource(1)))
}

// Create, join, start: the full happy path.
func TestSetupFlow(t *testing.T) {
	db := newMemDB()
	svc := newTestService(db)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, model.StateWaiting, game.State)
	require.Len(t, game.Players, 1)
	assert.Equal(t, "Alice", game.Host.Name)
	assert.Equal(t, game.Host.ID, game.Players[0].ID)
	assert.Empty(t, game.Deck)
	assert.Empty(t, game.Discarded)

	joined, bob, err := svc.JoinGame(ctx, game.PublicID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.Name)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, "Alice", joined.Players[0].Name)
	assert.Equal(t, "Bob", joined.Players[1].Name)

	require.NoError(t, svc.StartGame(ctx, game.PublicID))

	started, err := svc.GetGame(ctx, game.PublicID)
	require.NoError(t, err)
	require.NotNil(t, started)
	assert.Equal(t, model.StatePlaying, started.State)
	assert.Equal(t, 0, started.PlayerTurn)

	total := len(started.Deck) + len(started.Discarded)
	for _, p := range started.Players {
		assert.Len(t, p.Hand, 1)
		total += len(p.Hand)
	}
	assert.Equal(t, model.DeckSize, total)
	// Two players reveal three set-aside cards.
	assert.Len(t, started.Discarded, 3)
}

// Starting with a single player is rejected before any deal state is
// written.
func TestStartGameRejectsSinglePlayer(t *testing.T) {
	db := newMemDB()
	svc := newTestService(db)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, "Alice")
	require.NoError(t, err)

	err = svc.StartGame(ctx, game.PublicID)
	require.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.Equal(t, 0, db.initCalls)

	got, err := svc.GetGame(ctx, game.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.StateWaiting, got.State)
	assert.Empty(t, got.Deck)
	assert.Empty(t, got.Players[0].Hand)
}

func TestStartGameTwiceRejected(t *testing.T) {
	db := newMemDB()
	svc := newTestService(db)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	_, _, err = svc.JoinGame(ctx, game.PublicID, "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.StartGame(ctx, game.PublicID))

	err = svc.StartGame(ctx, game.PublicID)
	require.ErrorIs(t, err, ErrGameAlreadyStarted)
	assert.Equal(t, 1, db.initCalls)
}

func TestJoinGameRejectsAfterStart(t *testing.T) {
	db := newMemDB()
	svc := newTestService(db)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	_, _, err = svc.JoinGame(ctx, game.PublicID, "Bob")
	require.NoError(t, err)
	require.NoError(t, svc.StartGame(ctx, game.PublicID))

	_, _, err = svc.JoinGame(ctx, game.PublicID, "Carol")
	require.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestJoinGameUnknownGame(t *testing.T) {
	svc := newTestService(newMemDB())

	_, _, err := svc.JoinGame(context.Background(), "missing", "Bob")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrGameNotFound))
}

func TestNameLengthBound(t *testing.T) {
	svc := newTestService(newMemDB())
	ctx := context.Background()

	longName := strings.Repeat("x", MaxPlayerNameLength+1)
	_, err := svc.CreateGame(ctx, longName)
	require.ErrorIs(t, err, ErrNameTooLong)

	game, err := svc.CreateGame(ctx, strings.Repeat("x", MaxPlayerNameLength))
	require.NoError(t, err)

	_, _, err = svc.JoinGame(ctx, game.PublicID, longName)
	require.ErrorIs(t, err, ErrNameTooLong)
}

// Two subscribers both see the initial snapshot and both see the same
// post-join snapshot once the write has been persisted.
func TestTwoSubscribersObserveSameMutation(t *testing.T) {
	db := newMemDB()
	svc := newTestService(db)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, "Alice")
	require.NoError(t, err)

	var mu sync.Mutex
	var first, second []*model.Game
	subA, err := svc.SubscribeGame(ctx, game.PublicID, func(g *model.Game) {
		mu.Lock()
		first = append(first, g)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer subA.Release()
	subB, err := svc.SubscribeGame(ctx, game.PublicID, func(g *model.Game) {
		mu.Lock()
		second = append(second, g)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer subB.Release()

	mu.Lock()
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Len(t, first[0].Players, 1)
	assert.Len(t, second[0].Players, 1)
	mu.Unlock()

	_, _, err = svc.JoinGame(ctx, game.PublicID, "Bob")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].Players, second[1].Players)
	assert.Equal(t, "Bob", first[1].Players[1].Name)
}
