// Package repository tests use testcontainers-go to spin up a
// PostgreSQL container and exercise the real schema.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"love-letter-server/internal/model"
)

// checkDockerAvailable checks if Docker is available and running.
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container, applies the schema and
// returns a connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func TestGameRepository_CreateGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, game.PublicID)
	assert.Equal(t, model.StateWaiting, game.State)
	assert.Equal(t, 0, game.PlayerTurn)
	require.Len(t, game.Players, 1)
	assert.Equal(t, "Alice", game.Host.Name)
	assert.Equal(t, game.Host.ID, game.HostPlayerID)
	assert.NotEmpty(t, game.Host.PublicID)
	assert.Empty(t, game.Deck)
	assert.Empty(t, game.Discarded)
	assert.Empty(t, game.Host.Hand)
}

func TestGameRepository_GetByPublicID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	created, err := repo.CreateGame(ctx, "Alice")
	require.NoError(t, err)

	got, err := repo.GetByPublicID(ctx, created.PublicID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.PublicID, got.PublicID)
	assert.Equal(t, model.StateWaiting, got.State)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "Alice", got.Host.Name)

	_, err = repo.GetByPublicID(ctx, "no-such-game")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrGameNotFound))
}

func TestGameRepository_AddPlayer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.CreateGame(ctx, "Alice")
	require.NoError(t, err)

	bob, err := repo.AddPlayer(ctx, game.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", bob.Name)
	assert.Equal(t, game.ID, bob.GameID)
	assert.Equal(t, 0, bob.Order)
	assert.NotEmpty(t, bob.PublicID)

	got, err := repo.GetByPublicID(ctx, game.PublicID)
	require.NoError(t, err)
	require.Len(t, got.Players, 2)
	assert.Equal(t, "Alice", got.Players[0].Name)
	assert.Equal(t, "Bob", got.Players[1].Name)
}

func TestGameRepository_UpdateGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.CreateGame(ctx, "Alice")
	require.NoError(t, err)

	finished := model.StateFinished
	turn := 1
	row, err := repo.UpdateGame(ctx, game.ID, GameUpdate{State: &finished, PlayerTurn: &turn})
	require.NoError(t, err)
	assert.Equal(t, model.StateFinished, row.State)
	assert.Equal(t, 1, row.PlayerTurn)
	assert.Equal(t, game.PublicID, row.PublicID)

	got, err := repo.GetByPublicID(ctx, game.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.StateFinished, got.State)
	assert.Equal(t, 1, got.PlayerTurn)

	_, err = repo.UpdateGame(ctx, 999999, GameUpdate{State: &finished})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrGameNotFound))
}

func TestGameRepository_InitGame(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.CreateGame(ctx, "Alice")
	require.NoError(t, err)
	bob, err := repo.AddPlayer(ctx, game.ID, "Bob")
	require.NoError(t, err)

	// Bob goes first; hands, deck and set-aside pile cover the full
	// 16-card catalog.
	init := RoundInit{
		GameID: game.ID,
		Seating: []PlayerSetup{
			{PlayerID: bob.ID, Hand: []model.CardType{model.CardGuard}},
			{PlayerID: game.Host.ID, Hand: []model.CardType{model.CardPriest}},
		},
		Deck: []model.CardType{
			model.CardGuard, model.CardBaron, model.CardBaron, model.CardHandmaid,
			model.CardHandmaid, model.CardPrince, model.CardPrince, model.CardChancellor,
			model.CardChancellor, model.CardKing, model.CardCountess,
		},
		Discarded: []model.CardType{model.CardSpy, model.CardSpy, model.CardPrincess},
	}
	require.NoError(t, repo.InitGame(ctx, init))

	got, err := repo.GetByPublicID(ctx, game.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePlaying, got.State)
	assert.Equal(t, 0, got.PlayerTurn)

	// Players come back ordered by their new turn indices.
	require.Len(t, got.Players, 2)
	assert.Equal(t, "Bob", got.Players[0].Name)
	assert.Equal(t, 0, got.Players[0].Order)
	assert.Equal(t, "Alice", got.Players[1].Name)
	assert.Equal(t, 1, got.Players[1].Order)

	require.Len(t, got.Players[0].Hand, 1)
	assert.Equal(t, model.CardGuard, got.Players[0].Hand[0].Type)
	require.Len(t, got.Players[1].Hand, 1)
	assert.Equal(t, model.CardPriest, got.Players[1].Hand[0].Type)

	require.Len(t, got.Deck, 11)
	assert.Equal(t, model.CardGuard, got.Deck[0].Type)
	assert.Equal(t, model.CardCountess, got.Deck[10].Type)
	require.Len(t, got.Discarded, 3)

	total := len(got.Deck) + len(got.Discarded)
	for _, p := range got.Players {
		total += len(p.Hand)
	}
	assert.Equal(t, model.DeckSize, total)

	// The host relation survives the reorder.
	assert.Equal(t, "Alice", got.Host.Name)
}
