package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"love-letter-server/internal/model"
	"love-letter-server/internal/repository"
)

// Persistence is the durable store the cache loads from and writes
// through to. *repository.GameRepository satisfies it; tests substitute
// fakes.
type Persistence interface {
	GetByPublicID(ctx context.Context, publicID string) (*model.Game, error)
	CreateGame(ctx context.Context, hostName string) (*model.Game, error)
	AddPlayer(ctx context.Context, gameID int64, name string) (*model.Player, error)
	UpdateGame(ctx context.Context, gameID int64, upd repository.GameUpdate) (*model.Game, error)
	InitGame(ctx context.Context, init repository.RoundInit) error
}

// Releasable detaches a subscription when released. Release is
// idempotent and safe to call from within a notification callback.
type Releasable interface {
	Release()
}

// futureHandle represents an in-flight or completed load of one game's
// handle. Concurrent callers for the same public id await the same
// future instead of issuing duplicate loads. A failed or game-not-found
// load is evicted from the map before ready closes, so a later call
// retries against storage.
type futureHandle struct {
	ready  chan struct{}
	handle *Handle
	err    error
}

// Store is the process-wide consistency cache, keyed by public game id.
// It owns every live session handle and is the single point of mutation
// for game state; all reads and writes to a live game go through it.
//
// Handles for finished or abandoned games are never evicted; in a
// long-running process the map grows with every game ever touched.
type Store struct {
	db Persistence

	mu    sync.Mutex
	games map[string]*futureHandle
}

// New creates the store. It is constructed once at startup and shared by
// reference with every caller.
func New(db Persistence) *Store {
	return &Store{
		db:    db,
		games: make(map[string]*futureHandle),
	}
}

// handleFor returns the game's session handle, loading it from storage
// if no handle is registered. The future is registered before the load
// result is known so every concurrent caller awaits the same load.
// Returns a StoreError of kind ErrGameNotFound if the game does not
// exist.
func (s *Store) handleFor(ctx context.Context, publicID string) (*Handle, error) {
	s.mu.Lock()
	if f, ok := s.games[publicID]; ok {
		s.mu.Unlock()
		log.Debug().Str("game", publicID).Msg("found cached game")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.ready:
		}
		return f.handle, f.err
	}

	f := &futureHandle{ready: make(chan struct{})}
	s.games[publicID] = f
	s.mu.Unlock()

	log.Debug().Str("game", publicID).Msg("loading game from storage")
	game, err := s.db.GetByPublicID(ctx, publicID)
	if err != nil {
		// Leave no residual entry so a later call can retry cleanly.
		s.evict(publicID, f)
		f.err = err
		close(f.ready)
		return nil, err
	}

	f.handle = NewHandle(game)
	close(f.ready)
	return f.handle, nil
}

// evict removes f from the map if it is still the registered entry.
func (s *Store) evict(publicID string, f *futureHandle) {
	s.mu.Lock()
	if s.games[publicID] == f {
		delete(s.games, publicID)
	}
	s.mu.Unlock()
}

// register installs a completed handle for publicID.
func (s *Store) register(publicID string, h *Handle) {
	f := &futureHandle{ready: make(chan struct{}), handle: h}
	close(f.ready)
	s.mu.Lock()
	s.games[publicID] = f
	s.mu.Unlock()
}

// GetOrFetch returns the current snapshot of the game, serving from the
// cached handle when one exists and loading from storage otherwise.
// Returns (nil, nil) when no such game exists; absence is never cached.
func (s *Store) GetOrFetch(ctx context.Context, publicID string) (*model.Game, error) {
	h, err := s.handleFor(ctx, publicID)
	if err != nil {
		if model.IsKind(err, model.ErrGameNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return h.Current(), nil
}

// Subscribe registers a long-lived listener for the game. The listener
// immediately receives the current snapshot and then every subsequent
// one. Returns a StoreError of kind ErrGameNotFound if the game does not
// exist.
func (s *Store) Subscribe(ctx context.Context, publicID string, onChange func(*model.Game)) (Releasable, error) {
	h, err := s.handleFor(ctx, publicID)
	if err != nil {
		return nil, err
	}

	token := h.Subscribe(onChange)
	log.Debug().Str("game", publicID).Msg("subscribed to game")

	return &release{handle: h, token: token, publicID: publicID}, nil
}

// release detaches one store subscription. The sync.Once keeps a double
// Release from detaching a token that was reissued.
type release struct {
	once     sync.Once
	handle   *Handle
	token    Token
	publicID string
}

func (r *release) Release() {
	r.once.Do(func() {
		log.Debug().Str("game", r.publicID).Msg("releasing game subscription")
		r.handle.Unsubscribe(r.token)
	})
}

// CreateGame writes a new game and its host player to storage, registers
// a fresh handle seeded with that snapshot and returns it. No load race
// is possible: this call is the sole creator of the public id.
func (s *Store) CreateGame(ctx context.Context, hostName string) (*model.Game, error) {
	game, err := s.db.CreateGame(ctx, hostName)
	if err != nil {
		return nil, err
	}

	h := NewHandle(game)
	s.register(game.PublicID, h)

	return h.Current(), nil
}

// AddPlayerToGame writes a new player row for the game, then appends the
// player to the cached snapshot, notifying subscribers. Phase checks
// (game still waiting) belong to the caller. If no handle is registered
// yet, one is seeded from the freshly loaded state instead of re-hitting
// storage.
func (s *Store) AddPlayerToGame(ctx context.Context, publicID, playerName string) (*model.Game, *model.Player, error) {
	game, err := s.db.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}

	player, err := s.db.AddPlayer(ctx, game.ID, playerName)
	if err != nil {
		return nil, nil, err
	}

	h, err := s.handleForJoin(ctx, publicID, game)
	if err != nil {
		return nil, nil, err
	}

	h.Update(func(current *model.Game) *model.Game {
		current.Players = append(current.Players, player.Clone())
		return current
	})

	clone := player.Clone()
	return h.Current(), &clone, nil
}

// handleForJoin returns the cached handle, or seeds one from the game
// state already in hand when no handle is registered yet.
func (s *Store) handleForJoin(ctx context.Context, publicID string, game *model.Game) (*Handle, error) {
	s.mu.Lock()
	f, ok := s.games[publicID]
	s.mu.Unlock()
	if ok {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.ready:
		}
		if f.err == nil && f.handle != nil {
			return f.handle, nil
		}
	}

	log.Warn().Str("game", publicID).Msg("handle missing while adding player to game")
	h := NewHandle(game)
	s.register(publicID, h)
	return h, nil
}

// UpdateGame applies a partial update to the game row and folds the
// returned canonical fields into the cached snapshot, if one exists.
func (s *Store) UpdateGame(ctx context.Context, gameID int64, upd repository.GameUpdate) error {
	row, err := s.db.UpdateGame(ctx, gameID, upd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	f, ok := s.games[row.PublicID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ready:
	}
	if f.err != nil || f.handle == nil {
		return nil
	}

	f.handle.Update(func(current *model.Game) *model.Game {
		current.State = row.State
		current.PlayerTurn = row.PlayerTurn
		current.UpdatedAt = row.UpdatedAt
		return current
	})
	return nil
}

// InitGame transactionally persists the dealt round, then reloads the
// full aggregate and replaces the cached snapshot wholesale.
func (s *Store) InitGame(ctx context.Context, publicID string, init repository.RoundInit) error {
	if err := s.db.InitGame(ctx, init); err != nil {
		return err
	}

	game, err := s.db.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	f, ok := s.games[publicID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ready:
	}
	if f.err != nil || f.handle == nil {
		return nil
	}

	f.handle.Update(func(*model.Game) *model.Game {
		return game
	})
	return nil
}
