package db

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS leagues (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS seasons (
	id        TEXT PRIMARY KEY,
	league_id TEXT NOT NULL REFERENCES leagues (id),
	name      TEXT NOT NULL,
	year      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	short_name TEXT,
	league_id  TEXT NOT NULL REFERENCES leagues (id)
);

CREATE TABLE IF NOT EXISTS rounds (
	id           TEXT PRIMARY KEY,
	league_id    TEXT NOT NULL REFERENCES leagues (id),
	season_id    TEXT NOT NULL REFERENCES seasons (id),
	round_number INTEGER NOT NULL,
	name         TEXT NOT NULL,
	start_date   TIMESTAMPTZ NOT NULL,
	end_date     TIMESTAMPTZ NOT NULL,
	CHECK (start_date <= end_date)
);

CREATE TABLE IF NOT EXISTS matches (
	id           TEXT PRIMARY KEY,
	league_id    TEXT NOT NULL,
	season_id    TEXT NOT NULL,
	home_team_id TEXT NOT NULL,
	away_team_id TEXT NOT NULL,
	home_score   INTEGER NOT NULL DEFAULT 0 CHECK (home_score >= 0),
	away_score   INTEGER NOT NULL DEFAULT 0 CHECK (away_score >= 0),
	status       TEXT NOT NULL,
	minute       INTEGER,
	events       JSONB NOT NULL DEFAULT '[]',
	version      BIGINT NOT NULL DEFAULT 0,
	scheduled_at TIMESTAMPTZ NOT NULL,
	venue        TEXT,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT matches_league_id_fkey FOREIGN KEY (league_id) REFERENCES leagues (id),
	CONSTRAINT matches_season_id_fkey FOREIGN KEY (season_id) REFERENCES seasons (id),
	CONSTRAINT matches_home_team_id_fkey FOREIGN KEY (home_team_id) REFERENCES teams (id),
	CONSTRAINT matches_away_team_id_fkey FOREIGN KEY (away_team_id) REFERENCES teams (id)
);

CREATE INDEX IF NOT EXISTS idx_matches_league_season ON matches (league_id, season_id);
CREATE INDEX IF NOT EXISTS idx_matches_scheduled_at ON matches (scheduled_at);

CREATE TABLE IF NOT EXISTS standings (
	league_id       TEXT NOT NULL,
	season_id       TEXT NOT NULL,
	team_id         TEXT NOT NULL REFERENCES teams (id),
	position        INTEGER NOT NULL,
	played          INTEGER NOT NULL,
	won             INTEGER NOT NULL,
	drawn           INTEGER NOT NULL,
	lost            INTEGER NOT NULL,
	goals_for       INTEGER NOT NULL,
	goals_against   INTEGER NOT NULL,
	goal_difference INTEGER NOT NULL,
	points          INTEGER NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (league_id, season_id, team_id)
);
`

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
