package message

// Isso aqui são as mensagens que vão no sentido servidor -> client
import (
	"log"
	"time"

	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/game/gesture"
	"gesturejokenpo/internal/network"
)

type ConnectPayload struct {
	PlayerID string `json:"player_id"`
}

type StartGamePayload struct {
	PlayerID string      `json:"player_id"`
	GameData game.Status `json:"game_data"`
}

type CountdownPayload struct {
	StartTimestamp time.Time `json:"start_timestamp"`
	EndTimestamp   time.Time `json:"end_timestamp"`
}

type ImagePayload struct {
	ImageData string `json:"image_data"`
}

type TimestampPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// RoundResultPayload é enviado aos dois jogadores quando a rodada é resolvida.
// Winner vazio significa empate.
type RoundResultPayload struct {
	Round    int                        `json:"round"`
	Winner   string                     `json:"winner"`
	Choices  map[string]gesture.Gesture `json:"choices"`
	GameData game.Status                `json:"game_data"`
}

type GamePayload struct {
	GameData game.Status `json:"game_data"`
}

func Connect(playerID string) network.Message {
	return build(network.EventConnect, ConnectPayload{PlayerID: playerID})
}

func StartGame(playerID string, status game.Status) network.Message {
	return build(network.EventStartGame, StartGamePayload{PlayerID: playerID, GameData: status})
}

func StartCountdown(start, end time.Time) network.Message {
	return build(network.EventStartCountdown, CountdownPayload{StartTimestamp: start, EndTimestamp: end})
}

func WaitForOtherPlayer() network.Message {
	return network.Message{Action: network.EventWaitForOther}
}

func WaitToClick() network.Message {
	return network.Message{Action: network.EventWaitToClick}
}

func CaptureWebcam(imageData string) network.Message {
	return build(network.EventCaptureWebcam, ImagePayload{ImageData: imageData})
}

func InvalidImage(imageData string) network.Message {
	return build(network.EventInvalidImage, ImagePayload{ImageData: imageData})
}

func ActualTimestamp(ts time.Time) network.Message {
	return build(network.EventActualTimestamp, TimestampPayload{Timestamp: ts})
}

func RoundResult(res game.RoundResult, status game.Status) network.Message {
	return build(network.EventRoundResult, RoundResultPayload{
		Round:    res.Round,
		Winner:   res.Winner,
		Choices:  res.Choices,
		GameData: status,
	})
}

func OpponentLeft(status game.Status) network.Message {
	return build(network.EventOpponentLeft, GamePayload{GameData: status})
}

func Error(code string, err error) network.Message {
	return network.NewErrorMessage(code, err.Error())
}

// build só falha com payloads que não viram JSON, o que nenhum dos tipos acima faz.
func build(event string, payload any) network.Message {
	msg, err := network.NewMessage(event, payload)
	if err != nil {
		log.Printf("[Message] ERROR: %v", err)
		return network.NewErrorMessage("internal", "failed to build "+event)
	}
	return msg
}
