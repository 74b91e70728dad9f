// Package repository provides the durable persistence layer over
// PostgreSQL. The consistency cache treats it as the source of truth on
// cold load and as the write target on every mutation.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"love-letter-server/internal/model"
)

// Card locations in the game_deck table.
const (
	locationDeck      = "deck"
	locationDiscarded = "discarded"
)

const gameColumns = "id, public_id, state, host_player_id, player_turn, created_at, updated_at"

const playerColumns = "id, public_id, game_id, name, tokens, protected, turn_order, created_at, updated_at"

// GameUpdate is a partial update of a game row. Nil fields are left
// untouched.
type GameUpdate struct {
	State      *model.GameState
	PlayerTurn *int
}

// PlayerSetup pairs a player with their dealt opening hand.
type PlayerSetup struct {
	PlayerID int64
	Hand     []model.CardType
}

// RoundInit is the full dealt state persisted when a game starts:
// turn assignments, opening hands, the undealt deck and the face-up
// discard pile, plus the waiting -> playing transition.
type RoundInit struct {
	GameID    int64
	Seating   []PlayerSetup // in turn order; slice index is the turn index
	Deck      []model.CardType
	Discarded []model.CardType
}

// GameRepository handles game aggregate persistence.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// GetByPublicID loads the full game aggregate: the game row, its host,
// its players ordered by turn index with their hands, the undealt deck
// and the discard pile.
// Returns a StoreError of kind ErrGameNotFound if no such game exists and
// ErrGameHostNotFound if the game row has no resolvable host.
func (r *GameRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Game, error) {
	var (
		game   model.Game
		hostID *int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM game WHERE public_id = $1`,
		publicID,
	).Scan(&game.ID, &game.PublicID, &game.State, &hostID, &game.PlayerTurn, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewStoreError(model.ErrGameNotFound)
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	players, err := r.playersForGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if err := r.attachHands(ctx, game.ID, players); err != nil {
		return nil, err
	}
	deckCards, discarded, err := r.deckForGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	game.Players = players
	game.Deck = deckCards
	game.Discarded = discarded

	if hostID == nil {
		return nil, model.NewStoreError(model.ErrGameHostNotFound)
	}
	game.HostPlayerID = *hostID
	host, ok := game.PlayerByID(*hostID)
	if !ok {
		return nil, model.NewStoreError(model.ErrGameHostNotFound)
	}
	game.Host = host

	return &game, nil
}

// playersForGame loads a game's players ordered by turn index.
func (r *GameRepository) playersForGame(ctx context.Context, gameID int64) ([]model.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM player WHERE game_id = $1 ORDER BY turn_order, id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		err := rows.Scan(&p.ID, &p.PublicID, &p.GameID, &p.Name, &p.Tokens, &p.Protected, &p.Order, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		p.Hand = []model.Card{}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// attachHands loads every hand card for the game and attaches them to the
// matching players in card order.
func (r *GameRepository) attachHands(ctx context.Context, gameID int64, players []model.Player) error {
	rows, err := r.pool.Query(ctx,
		`SELECT player_id, card_type FROM player_hand WHERE game_id = $1 ORDER BY player_id, card_order`,
		gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to get hands: %w", err)
	}
	defer rows.Close()

	byPlayer := make(map[int64][]model.Card)
	for rows.Next() {
		var (
			playerID int64
			cardType model.CardType
		)
		if err := rows.Scan(&playerID, &cardType); err != nil {
			return fmt.Errorf("failed to scan hand card: %w", err)
		}
		card, ok := model.CardOf(cardType)
		if !ok {
			return fmt.Errorf("unknown card type %q in player hand", cardType)
		}
		byPlayer[playerID] = append(byPlayer[playerID], card)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating hand cards: %w", err)
	}

	for i := range players {
		if hand, ok := byPlayer[players[i].ID]; ok {
			players[i].Hand = hand
		}
	}
	return nil
}

// deckForGame loads the game's card rows and partitions them into the
// undealt deck (by card order) and the discard pile (in the order cards
// left play).
func (r *GameRepository) deckForGame(ctx context.Context, gameID int64) (deckCards, discarded []model.Card, err error) {
	rows, err := r.pool.Query(ctx,
		`SELECT card_type, location, card_order, updated_at FROM game_deck WHERE game_id = $1 ORDER BY card_order`,
		gameID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get deck: %w", err)
	}
	defer rows.Close()

	type discardRow struct {
		card      model.Card
		order     int
		updatedAt time.Time
	}
	deckCards = []model.Card{}
	var discardRows []discardRow
	for rows.Next() {
		var (
			cardType  model.CardType
			location  string
			cardOrder int
			updatedAt time.Time
		)
		if err := rows.Scan(&cardType, &location, &cardOrder, &updatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan deck card: %w", err)
		}
		card, ok := model.CardOf(cardType)
		if !ok {
			return nil, nil, fmt.Errorf("unknown card type %q in game deck", cardType)
		}
		switch location {
		case locationDeck:
			deckCards = append(deckCards, card)
		case locationDiscarded:
			discardRows = append(discardRows, discardRow{card: card, order: cardOrder, updatedAt: updatedAt})
		default:
			return nil, nil, fmt.Errorf("unknown card location %q", location)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating deck cards: %w", err)
	}

	// Discards are ordered by the time they left play, with the written
	// card order as a tiebreak for rows persisted in one statement.
	sort.SliceStable(discardRows, func(i, j int) bool {
		if !discardRows[i].updatedAt.Equal(discardRows[j].updatedAt) {
			return discardRows[i].updatedAt.Before(discardRows[j].updatedAt)
		}
		return discardRows[i].order < discardRows[j].order
	})
	discarded = make([]model.Card, len(discardRows))
	for i, row := range discardRows {
		discarded[i] = row.card
	}

	return deckCards, discarded, nil
}

// CreateGame transactionally creates a new game in the waiting state
// together with its host player, and wires the host reference.
func (r *GameRepository) CreateGame(ctx context.Context, hostName string) (*model.Game, error) {
	gamePublicID, err := gonanoid.New()
	if err != nil {
		return nil, model.WrapStoreError(model.ErrGameCreationFailed, err)
	}
	playerPublicID, err := gonanoid.New()
	if err != nil {
		return nil, model.WrapStoreError(model.ErrPlayerCreationFailed, err)
	}

	var (
		game model.Game
		host model.Player
	)
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO game (public_id) VALUES ($1) RETURNING `+gameColumns,
			gamePublicID,
		).Scan(&game.ID, &game.PublicID, &game.State, new(*int64), &game.PlayerTurn, &game.CreatedAt, &game.UpdatedAt)
		if err != nil {
			return model.WrapStoreError(model.ErrGameCreationFailed, err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO player (public_id, game_id, name, turn_order) VALUES ($1, $2, $3, 0) RETURNING `+playerColumns,
			playerPublicID, game.ID, hostName,
		).Scan(&host.ID, &host.PublicID, &host.GameID, &host.Name, &host.Tokens, &host.Protected, &host.Order, &host.CreatedAt, &host.UpdatedAt)
		if err != nil {
			return model.WrapStoreError(model.ErrPlayerCreationFailed, err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE game SET host_player_id = $1, updated_at = NOW() WHERE id = $2`,
			host.ID, game.ID,
		)
		if err != nil {
			return model.WrapStoreError(model.ErrGameCreationFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	host.Hand = []model.Card{}
	game.HostPlayerID = host.ID
	game.Host = host
	game.Players = []model.Player{host}
	game.Deck = []model.Card{}
	game.Discarded = []model.Card{}

	return &game, nil
}

// AddPlayer inserts a new player row for the game. The turn index
// defaults to 0 and is reassigned when the round is dealt.
func (r *GameRepository) AddPlayer(ctx context.Context, gameID int64, name string) (*model.Player, error) {
	publicID, err := gonanoid.New()
	if err != nil {
		return nil, model.WrapStoreError(model.ErrPlayerCreationFailed, err)
	}

	var p model.Player
	err = r.pool.QueryRow(ctx,
		`INSERT INTO player (public_id, game_id, name, turn_order) VALUES ($1, $2, $3, 0) RETURNING `+playerColumns,
		publicID, gameID, name,
	).Scan(&p.ID, &p.PublicID, &p.GameID, &p.Name, &p.Tokens, &p.Protected, &p.Order, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, model.WrapStoreError(model.ErrPlayerCreationFailed, err)
	}

	p.Hand = []model.Card{}
	return &p, nil
}

// UpdateGame applies a partial update to a game row and returns the
// canonical row as stored. Relations are not loaded.
func (r *GameRepository) UpdateGame(ctx context.Context, gameID int64, upd GameUpdate) (*model.Game, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{gameID}
	if upd.State != nil {
		args = append(args, *upd.State)
		sets = append(sets, fmt.Sprintf("state = $%d", len(args)))
	}
	if upd.PlayerTurn != nil {
		args = append(args, *upd.PlayerTurn)
		sets = append(sets, fmt.Sprintf("player_turn = $%d", len(args)))
	}

	query := "UPDATE game SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING " + gameColumns

	var (
		game   model.Game
		hostID *int64
	)
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&game.ID, &game.PublicID, &game.State, &hostID, &game.PlayerTurn, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewStoreError(model.ErrGameNotFound)
		}
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	if hostID != nil {
		game.HostPlayerID = *hostID
	}

	return &game, nil
}

// InitGame persists the dealt round as one transaction: turn
// assignments, opening hands, deck and discard rows, and the
// waiting -> playing transition with the turn pointer reset.
func (r *GameRepository) InitGame(ctx context.Context, init RoundInit) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for order, seat := range init.Seating {
			tag, err := tx.Exec(ctx,
				`UPDATE player SET turn_order = $1, updated_at = NOW() WHERE id = $2`,
				order, seat.PlayerID,
			)
			if err != nil {
				return fmt.Errorf("failed to assign turn order: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return model.NewStoreError(model.ErrPlayerNotFound)
			}

			for cardOrder, cardType := range seat.Hand {
				_, err := tx.Exec(ctx,
					`INSERT INTO player_hand (player_id, game_id, card_type, card_order) VALUES ($1, $2, $3, $4)`,
					seat.PlayerID, init.GameID, cardType, cardOrder,
				)
				if err != nil {
					return fmt.Errorf("failed to insert hand card: %w", err)
				}
			}
		}

		if err := insertDeckCards(ctx, tx, init.GameID, locationDeck, init.Deck); err != nil {
			return err
		}
		if err := insertDeckCards(ctx, tx, init.GameID, locationDiscarded, init.Discarded); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE game SET state = $1, player_turn = 0, updated_at = NOW() WHERE id = $2`,
			model.StatePlaying, init.GameID,
		)
		if err != nil {
			return fmt.Errorf("failed to update game state: %w", err)
		}
		return nil
	})
}

// insertDeckCards writes a run of game_deck rows for one location.
func insertDeckCards(ctx context.Context, tx pgx.Tx, gameID int64, location string, cards []model.CardType) error {
	for order, cardType := range cards {
		_, err := tx.Exec(ctx,
			`INSERT INTO game_deck (game_id, card_type, location, card_order) VALUES ($1, $2, $3, $4)`,
			gameID, cardType, location, order,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s card: %w", location, err)
		}
	}
	return nil
}
