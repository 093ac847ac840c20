package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/livescore/models"
)

type LeagueRepository interface {
	ListLeagues(ctx context.Context) ([]models.League, error)
	ListSeasons(ctx context.Context, leagueID string) ([]models.Season, error)
	ListRounds(ctx context.Context, leagueID, seasonID string) ([]models.Round, error)
	ListTeams(ctx context.Context, leagueID string) ([]models.Team, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) ListLeagues(ctx context.Context) ([]models.League, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, country FROM leagues ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]models.League, 0)
	for rows.Next() {
		var l models.League
		if err := rows.Scan(&l.ID, &l.Name, &l.Country); err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

func (r *postgresLeagueRepository) ListSeasons(ctx context.Context, leagueID string) ([]models.Season, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, league_id, name, year FROM seasons WHERE league_id = $1 ORDER BY year DESC, id ASC`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seasons := make([]models.Season, 0)
	for rows.Next() {
		var s models.Season
		if err := rows.Scan(&s.ID, &s.LeagueID, &s.Name, &s.Year); err != nil {
			return nil, err
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

func (r *postgresLeagueRepository) ListRounds(ctx context.Context, leagueID, seasonID string) ([]models.Round, error) {
	query := `
		SELECT id, league_id, season_id, round_number, name, start_date, end_date
		FROM rounds
		WHERE league_id = $1 AND season_id = $2
		ORDER BY round_number ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, leagueID, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		var rd models.Round
		if err := rows.Scan(&rd.ID, &rd.LeagueID, &rd.SeasonID, &rd.Number, &rd.Name, &rd.StartDate, &rd.EndDate); err != nil {
			return nil, err
		}
		rounds = append(rounds, rd)
	}
	return rounds, rows.Err()
}

// ListTeams returns the teams of leagueID, or every team when leagueID is empty.
func (r *postgresLeagueRepository) ListTeams(ctx context.Context, leagueID string) ([]models.Team, error) {
	query := `SELECT id, name, short_name, league_id FROM teams`
	args := []interface{}{}
	if leagueID != "" {
		query += ` WHERE league_id = $1`
		args = append(args, leagueID)
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

func (r *postgresLeagueRepository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	t, err := scanTeam(r.db.QueryRowContext(ctx, `SELECT id, name, short_name, league_id FROM teams WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func scanTeam(s rowScanner) (*models.Team, error) {
	var (
		t         models.Team
		shortName sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Name, &shortName, &t.LeagueID); err != nil {
		return nil, err
	}
	t.ShortName = shortName.String
	return &t, nil
}
