package repositories

import "database/sql"

// Store bundles every repository the service needs behind one value.
type Store struct {
	MatchRepository
	LeagueRepository
	StandingRepository
}

func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		MatchRepository:    NewPostgresMatchRepository(db),
		LeagueRepository:   NewPostgresLeagueRepository(db),
		StandingRepository: NewPostgresStandingRepository(db),
	}
}

func NewMemoryBackedStore(m *MemoryStore) *Store {
	return &Store{
		MatchRepository:    m,
		LeagueRepository:   m,
		StandingRepository: m,
	}
}
