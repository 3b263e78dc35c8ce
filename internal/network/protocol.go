package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message é o envelope padrão para toda a comunicação, nos dois sentidos.
// Action é o nome da ação (entrada) ou do evento (saída).
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MaxMessageSize limita o tamanho de um frame recebido. Uma imagem de webcam
// em base64 cabe folgado.
const MaxMessageSize = 2 * 1024 * 1024

var ErrUnknownAction = errors.New("unknown action")

// Action é o conjunto fechado de ações que um cliente pode enviar.
type Action int

const (
	ActionUnknown Action = iota
	ActionStartGame
	ActionStartCountdown
	ActionCaptureWebcam
	ActionGetTimestamp
)

var actionNames = map[Action]string{
	ActionStartGame:      "start_game",
	ActionStartCountdown: "on_click_start_countdown",
	ActionCaptureWebcam:  "capture_webcam",
	ActionGetTimestamp:   "get_actual_timestamp",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

// ParseAction converte o nome recebido no fio para uma Action.
func ParseAction(name string) (Action, error) {
	if a, ok := actionsByName[name]; ok {
		return a, nil
	}
	return ActionUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Eventos enviados pelo servidor.
const (
	EventConnect         = "connect"
	EventStartGame       = "start_game"
	EventStartCountdown  = "start_countdown"
	EventWaitForOther    = "wait_for_other_player"
	EventWaitToClick     = "wait_to_click"
	EventCaptureWebcam   = "capture_webcam"
	EventInvalidImage    = "invalid_image"
	EventActualTimestamp = "get_actual_timestamp"
	EventRoundResult     = "round_result"
	EventOpponentLeft    = "opponent_left"
	EventError           = "error"
)

// ErrorPayload é o corpo do evento "error".
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewMessage serializa o payload e monta o envelope.
func NewMessage(action string, payload any) (Message, error) {
	if payload == nil {
		return Message{Action: action}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload for %s: %w", action, err)
	}
	return Message{Action: action, Payload: data}, nil
}

// NewErrorMessage monta um evento "error". Nunca falha.
func NewErrorMessage(code, text string) Message {
	data, _ := json.Marshal(ErrorPayload{Error: text, Code: code})
	return Message{Action: EventError, Payload: data}
}
