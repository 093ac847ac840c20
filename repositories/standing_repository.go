package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/livescore/models"
)

type StandingRepository interface {
	ListStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error)
	ReplaceStandings(ctx context.Context, leagueID, seasonID string, rows []models.StandingRow) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) ListStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error) {
	query := `
		SELECT s.league_id, s.season_id, s.position, s.team_id, t.name,
		       s.played, s.won, s.drawn, s.lost, s.goals_for, s.goals_against,
		       s.goal_difference, s.points, s.updated_at
		FROM standings s
		JOIN teams t ON t.id = s.team_id
		WHERE s.league_id = $1 AND s.season_id = $2
		ORDER BY s.position ASC`
	rows, err := r.db.QueryContext(ctx, query, leagueID, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := make([]models.StandingRow, 0)
	for rows.Next() {
		var s models.StandingRow
		if err := rows.Scan(
			&s.LeagueID, &s.SeasonID, &s.Position, &s.TeamID, &s.TeamName,
			&s.Played, &s.Won, &s.Drawn, &s.Lost, &s.GoalsFor, &s.GoalsAgainst,
			&s.GoalDifference, &s.Points, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		table = append(table, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// ReplaceStandings swaps the whole table of a league season in one
// transaction.
func (r *postgresStandingRepository) ReplaceStandings(ctx context.Context, leagueID, seasonID string, table []models.StandingRow) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM standings WHERE league_id = $1 AND season_id = $2`, leagueID, seasonID); err != nil {
			return fmt.Errorf("failed to clear standings: %w", err)
		}
		if len(table) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO standings
				(league_id, season_id, position, team_id, played, won, drawn, lost,
				 goals_for, goals_against, goal_difference, points, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range table {
			if _, err := stmt.ExecContext(ctx,
				leagueID, seasonID, s.Position, s.TeamID, s.Played, s.Won, s.Drawn, s.Lost,
				s.GoalsFor, s.GoalsAgainst, s.GoalDifference, s.Points, s.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert standing for team %s: %w", s.TeamID, err)
			}
		}
		return nil
	})
}
