package services

import (
	"errors"

	"github.com/Dosada05/livescore/live"
	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	"github.com/Dosada05/livescore/standings"
)

var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	ErrMatchNotFound  = models.ErrMatchNotFound
	ErrTeamNotFound   = repositories.ErrTeamNotFound
	ErrLeagueNotFound = repositories.ErrLeagueNotFound

	ErrInvalidTransition        = live.ErrInvalidTransition
	ErrInvalidValue             = live.ErrInvalidValue
	ErrOutOfOrderEvent          = live.ErrOutOfOrderEvent
	ErrUnknownCommand           = live.ErrUnknownCommand
	ErrVersionConflict          = repositories.ErrVersionConflict
	ErrMatchConflict            = repositories.ErrDuplicateMatch
	ErrAmbiguousRoundAssignment = standings.ErrAmbiguousRoundAssignment
)
