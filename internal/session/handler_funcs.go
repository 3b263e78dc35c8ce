package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/session/message"
)

type captureRequest struct {
	ImageData string `json:"image_data"`
}

// handleStartGame coloca o jogador na fila e responde quando ele for pareado.
func (h *GameHandler) handleStartGame(ctx context.Context, session *PlayerSession) {
	status, err := h.matchmaker.Enqueue(ctx, session.ID)
	if err != nil {
		if ctx.Err() != nil {
			// A conexão caiu enquanto esperava.
			return
		}
		h.sendError(session, err)
		return
	}
	message.SendTo(h.gateway, session.ID, message.StartGame(session.ID, status))
}

// handleStartCountdown marca o clique. Quando os dois clicaram, os dois recebem
// o mesmo horário de início e fim da contagem.
func (h *GameHandler) handleStartCountdown(session *PlayerSession) {
	opponent, bothReady, err := h.matchmaker.RequestCountdown(session.ID)
	if err != nil {
		h.sendError(session, err)
		return
	}

	if !bothReady {
		message.SendTo(h.gateway, session.ID, message.WaitForOtherPlayer())
		message.SendTo(h.gateway, opponent, message.WaitToClick())
		return
	}

	start := h.clock.Now()
	countdown := message.StartCountdown(start, start.Add(h.captureDelay))
	message.SendTo(h.gateway, session.ID, countdown)
	message.SendTo(h.gateway, opponent, countdown)
}

// handleCaptureWebcam registra a imagem na partida sem bloquear o despacho.
// A espera pelo adversário roda fora dele, uma por rodada: imagens enviadas
// enquanto a rodada está aberta só sobrescrevem a jogada pendente.
// O round_result chega pelo Notifier.
func (h *GameHandler) handleCaptureWebcam(ctx context.Context, session *PlayerSession, payload json.RawMessage) {
	var req captureRequest
	if len(payload) == 0 || json.Unmarshal(payload, &req) != nil || req.ImageData == "" {
		h.sendError(session, fmt.Errorf("%w: capture_webcam needs image_data", errInvalidPayload))
		return
	}

	image, err := decodeImage(req.ImageData)
	if errors.Is(err, errUnreadableImage) {
		message.SendTo(h.gateway, session.ID, message.InvalidImage(req.ImageData))
		return
	}
	if err != nil {
		h.sendError(session, err)
		return
	}

	play, err := h.matchmaker.Submit(ctx, session.ID, image)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, game.ErrOpponentLeft) {
			return
		}
		h.sendError(session, err)
		return
	}
	if !play.Accepted() {
		message.SendTo(h.gateway, session.ID, message.InvalidImage(req.ImageData))
		return
	}
	message.SendTo(h.gateway, session.ID, message.CaptureWebcam(req.ImageData))

	if play.Resolver() || !session.claimWait(play) {
		return
	}
	go h.awaitRound(ctx, session, play)
}

// awaitRound espera a rodada da jogada fechar. Só avisa o jogador quando o
// tempo da rodada estoura; a jogada continua registrada para o adversário.
func (h *GameHandler) awaitRound(ctx context.Context, session *PlayerSession, play *game.Play) {
	defer session.releaseWait(play)

	roundCtx, cancel := context.WithTimeout(ctx, h.roundTimeout)
	defer cancel()

	_, err := play.Wait(roundCtx)
	// Sem erro para quem ficou sozinho: opponent_left já foi enviado.
	if err == nil || ctx.Err() != nil || errors.Is(err, game.ErrOpponentLeft) {
		return
	}
	h.sendError(session, err)
}

func (h *GameHandler) handleGetTimestamp(session *PlayerSession) {
	message.SendTo(h.gateway, session.ID, message.ActualTimestamp(h.clock.Now()))
}

func (h *GameHandler) sendError(session *PlayerSession, err error) {
	code := errorCode(err)
	if code == codeInternal {
		log.Printf("[Session] ERROR: Player %s: %v", session.ID, err)
	}
	message.SendError(h.gateway, session.ID, code, err)
}
