package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/livescore/live"
	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func getParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" {
		return "", fmt.Errorf("missing URL parameter %q", name)
	}
	return v, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message interface{}) {
	env := jsonResponse{"error": message}
	if code != "" {
		env["code"] = code
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, "internal", message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, "bad_request", err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, "not_found", message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, code string, message string) {
	errorResponse(w, r, http.StatusConflict, code, message)
}

func unprocessableResponse(w http.ResponseWriter, r *http.Request, code string, message string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, code, message)
}

// mapServiceErrorToHTTP turns service errors into responses. Rejected
// mutations carry a machine readable code next to the message.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		notFoundResponse(w, r)

	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrOutOfOrderEvent):
		conflictResponse(w, r, live.Reason(err), err.Error())
	case errors.Is(err, services.ErrVersionConflict):
		conflictResponse(w, r, "version_conflict", err.Error())
	case errors.Is(err, services.ErrMatchConflict):
		conflictResponse(w, r, "duplicate_match", err.Error())
	case errors.Is(err, services.ErrAmbiguousRoundAssignment):
		conflictResponse(w, r, "ambiguous_round_assignment", err.Error())

	case errors.Is(err, services.ErrInvalidValue),
		errors.Is(err, services.ErrUnknownCommand):
		unprocessableResponse(w, r, live.Reason(err), err.Error())
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, models.ErrUnknownEventKind):
		unprocessableResponse(w, r, "validation_failed", err.Error())
	case errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrLeagueNotFound):
		unprocessableResponse(w, r, "unknown_reference", err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
