package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/livescore/models"
	"github.com/lib/pq"
)

type MatchRepository interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	LoadMatch(ctx context.Context, id string) (*models.Match, error)
	SaveMatch(ctx context.Context, match *models.Match) error
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	m.id, m.league_id, m.season_id,
	m.home_team_id, ht.name, m.away_team_id, aw.name,
	m.home_score, m.away_score, m.status, m.minute, m.events,
	m.version, m.scheduled_at, m.venue, m.updated_at`

const matchFrom = `
	FROM matches m
	JOIN teams ht ON ht.id = m.home_team_id
	JOIN teams aw ON aw.id = m.away_team_id`

func (r *postgresMatchRepository) CreateMatch(ctx context.Context, match *models.Match) error {
	events, err := json.Marshal(match.Events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	query := `
		INSERT INTO matches
			(id, league_id, season_id, home_team_id, away_team_id, home_score, away_score,
			 status, minute, events, version, scheduled_at, venue, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.db.ExecContext(ctx, query,
		match.ID, match.LeagueID, match.SeasonID,
		match.HomeTeam.ID, match.AwayTeam.ID,
		match.HomeScore, match.AwayScore,
		match.Status, nullMinute(match.Minute), events,
		match.Version, match.ScheduledAt, match.Venue, match.UpdatedAt,
	)
	return mapPQError(err)
}

func (r *postgresMatchRepository) LoadMatch(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT` + matchColumns + matchFrom + ` WHERE m.id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

// SaveMatch writes a committed mutation. The stored row must still be at the
// previous version, otherwise ErrVersionConflict is returned.
func (r *postgresMatchRepository) SaveMatch(ctx context.Context, match *models.Match) error {
	events, err := json.Marshal(match.Events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	query := `
		UPDATE matches SET
			home_score = $1, away_score = $2, status = $3, minute = $4,
			events = $5, version = $6, updated_at = $7
		WHERE id = $8 AND version = $9`
	result, err := r.db.ExecContext(ctx, query,
		match.HomeScore, match.AwayScore, match.Status, nullMinute(match.Minute),
		events, match.Version, match.UpdatedAt,
		match.ID, match.Version-1,
	)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrVersionConflict); err != nil {
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		var exists bool
		if qErr := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, match.ID).Scan(&exists); qErr != nil {
			return qErr
		}
		if !exists {
			return models.ErrMatchNotFound
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT` + matchColumns + matchFrom + ` WHERE 1=1`)

	args := []interface{}{}
	argID := 1
	add := func(clause string, arg interface{}) {
		queryBuilder.WriteString(fmt.Sprintf(clause, argID))
		args = append(args, arg)
		argID++
	}

	if filter.LeagueID != nil {
		add(" AND m.league_id = $%d", *filter.LeagueID)
	}
	if filter.SeasonID != nil {
		add(" AND m.season_id = $%d", *filter.SeasonID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add(" AND m.status = ANY($%d)", pq.Array(statuses))
	}
	if filter.TeamID != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (m.home_team_id = $%d OR m.away_team_id = $%d)", argID, argID))
		args = append(args, *filter.TeamID)
		argID++
	}
	if filter.Date != nil {
		start := filter.Date.UTC().Truncate(24 * time.Hour)
		add(" AND m.scheduled_at >= $%d", start)
		add(" AND m.scheduled_at < $%d", start.Add(24*time.Hour))
	}
	queryBuilder.WriteString(" ORDER BY m.scheduled_at ASC, m.id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m      models.Match
		minute sql.NullInt64
		events []byte
		venue  sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.LeagueID, &m.SeasonID,
		&m.HomeTeam.ID, &m.HomeTeam.Name, &m.AwayTeam.ID, &m.AwayTeam.Name,
		&m.HomeScore, &m.AwayScore, &m.Status, &minute, &events,
		&m.Version, &m.ScheduledAt, &venue, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if minute.Valid {
		v := int(minute.Int64)
		m.Minute = &v
	}
	m.Venue = venue.String
	m.Events = []models.MatchEvent{}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &m.Events); err != nil {
			return nil, fmt.Errorf("failed to decode events of match %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func nullMinute(minute *int) sql.NullInt64 {
	if minute == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*minute), Valid: true}
}
