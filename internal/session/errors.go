package session

import (
	"context"
	"errors"

	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/matchmaker"
	"gesturejokenpo/internal/network"
	"gesturejokenpo/internal/services/classifier"
)

// Códigos enviados no campo "code" do evento de erro.
const (
	codeAlreadyQueued         = "already_queued"
	codePlayerNotFound        = "player_not_found"
	codeGameOver              = "game_over"
	codeOpponentLeft          = "opponent_left"
	codeClassifierUnavailable = "classifier_unavailable"
	codeRoundTimeout          = "round_timeout"
	codeInvalidPayload        = "invalid_payload"
	codeUnknownAction         = "unknown_action"
	codeInternal              = "internal"
)

var errInvalidPayload = errors.New("invalid payload")

// errorCode traduz o erro para o código que o cliente entende.
func errorCode(err error) string {
	switch {
	case errors.Is(err, matchmaker.ErrAlreadyQueued):
		return codeAlreadyQueued
	case errors.Is(err, matchmaker.ErrPlayerNotFound),
		errors.Is(err, matchmaker.ErrGameNotFound),
		errors.Is(err, game.ErrPlayerNotInGame):
		return codePlayerNotFound
	case errors.Is(err, game.ErrGameOver):
		return codeGameOver
	case errors.Is(err, game.ErrOpponentLeft):
		return codeOpponentLeft
	case errors.Is(err, classifier.ErrUnavailable):
		return codeClassifierUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codeRoundTimeout
	case errors.Is(err, errInvalidPayload), errors.Is(err, errUnreadableImage):
		return codeInvalidPayload
	case errors.Is(err, network.ErrUnknownAction):
		return codeUnknownAction
	}
	return codeInternal
}
