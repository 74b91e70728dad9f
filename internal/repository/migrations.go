package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Migrate applies the database schema. Statements are idempotent so the
// function is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: game table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game (
			id BIGSERIAL PRIMARY KEY,
			public_id VARCHAR(256) NOT NULL UNIQUE,
			state VARCHAR(256) NOT NULL DEFAULT 'waiting',
			host_player_id BIGINT,
			player_turn INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	// Migration 2: player table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS player (
			id BIGSERIAL PRIMARY KEY,
			public_id VARCHAR(256) NOT NULL,
			game_id BIGINT NOT NULL REFERENCES game(id),
			name VARCHAR(256) NOT NULL,
			tokens INT NOT NULL DEFAULT 0,
			protected BOOLEAN NOT NULL DEFAULT FALSE,
			turn_order INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS player_game_id_idx ON player(game_id);
	`)
	if err != nil {
		return err
	}

	// Migration 3: game_deck table (undealt deck and discard pile)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_deck (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL REFERENCES game(id),
			card_type VARCHAR(256) NOT NULL,
			location VARCHAR(256) NOT NULL,
			card_order INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS game_deck_game_id_idx ON game_deck(game_id);
	`)
	if err != nil {
		return err
	}

	// Migration 4: player_hand table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS player_hand (
			id BIGSERIAL PRIMARY KEY,
			player_id BIGINT NOT NULL REFERENCES player(id),
			game_id BIGINT NOT NULL REFERENCES game(id),
			card_type VARCHAR(256) NOT NULL,
			card_order INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS player_hand_game_id_idx ON player_hand(game_id);
	`)
	if err != nil {
		return err
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
