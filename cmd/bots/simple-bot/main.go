// simple-bot joga partidas contínuas contra quem estiver na fila, enviando
// imagens de um diretório. Serve para teste de carga do serviço de sessão.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"gesturejokenpo/internal/network"
	"gesturejokenpo/internal/session/message"
)

const (
	defaultServerURL = "ws://localhost:8080/ws"
	readTimeout      = 90 * time.Second
)

type bot struct {
	conn   *websocket.Conn
	id     string
	images []string
}

func main() {
	_ = godotenv.Load()

	serverURL := os.Getenv("BOT_SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	images, err := loadImages(os.Getenv("BOT_IMAGES_DIR"))
	if err != nil {
		log.Fatalf("[Bot] Fatal: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		log.Fatalf("[Bot] Connection FAIL: could not connect to %s: %v", serverURL, err)
	}
	defer conn.Close()

	b := &bot{conn: conn, images: images}
	var hello message.ConnectPayload
	if _, err := b.waitFor(&hello, network.EventConnect); err != nil {
		log.Fatalf("[Bot] FAIL: no connect event: %v", err)
	}
	b.id = hello.PlayerID
	log.Printf("[Bot] Connected as %s. Starting match loop.", b.id)

	for {
		if err := b.playMatch(); err != nil {
			log.Printf("[Bot] FAIL: %v", err)
			return
		}
		// Simula um jogador respirando entre partidas.
		time.Sleep(time.Duration(1+rand.Intn(3)) * time.Second)
	}
}

// loadImages lê todos os arquivos do diretório como data URLs.
func loadImages(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("BOT_IMAGES_DIR is not set")
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}

	var images []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		mediaType := mime.TypeByExtension(filepath.Ext(p))
		if mediaType == "" {
			mediaType = "image/jpeg"
		}
		images = append(images, fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data)))
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return images, nil
}

func (b *bot) send(action string, payload any) error {
	msg, err := network.NewMessage(action, payload)
	if err != nil {
		return err
	}
	return b.conn.WriteJSON(msg)
}

// waitFor lê até chegar um dos eventos pedidos e decodifica o payload em out.
// Eventos de erro interrompem a espera.
func (b *bot) waitFor(out any, events ...string) (string, error) {
	for {
		b.conn.SetReadDeadline(time.Now().Add(readTimeout))
		var msg network.Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			return "", err
		}
		if msg.Action == network.EventError {
			var e network.ErrorPayload
			json.Unmarshal(msg.Payload, &e)
			return msg.Action, fmt.Errorf("server error %s: %s", e.Code, e.Error)
		}
		if lo.Contains(events, msg.Action) {
			if out != nil && len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, out); err != nil {
					return msg.Action, err
				}
			}
			return msg.Action, nil
		}
	}
}

func (b *bot) playMatch() error {
	if err := b.send("start_game", nil); err != nil {
		return err
	}
	var start message.StartGamePayload
	if _, err := b.waitFor(&start, network.EventStartGame); err != nil {
		return fmt.Errorf("waiting for match: %w", err)
	}
	log.Printf("[Bot] Match %s started.", start.GameData.ID)

	for {
		if err := b.send("on_click_start_countdown", nil); err != nil {
			return err
		}
		var countdown message.CountdownPayload
		event, err := b.waitFor(&countdown, network.EventStartCountdown, network.EventOpponentLeft)
		if err != nil {
			return err
		}
		if event == network.EventOpponentLeft {
			log.Println("[Bot] Opponent left.")
			return nil
		}
		time.Sleep(time.Until(countdown.EndTimestamp))

		// Repete a captura até uma imagem ser aceita. O round_result pode chegar
		// antes do eco da própria captura.
		var result message.RoundResultPayload
		gotResult, accepted := false, false
		for !accepted {
			if err := b.send("capture_webcam", message.ImagePayload{ImageData: lo.Sample(b.images)}); err != nil {
				return err
			}
		wait:
			for {
				event, err := b.waitFor(&result, network.EventCaptureWebcam, network.EventInvalidImage,
					network.EventRoundResult, network.EventOpponentLeft)
				if err != nil {
					return err
				}
				switch event {
				case network.EventOpponentLeft:
					log.Println("[Bot] Opponent left.")
					return nil
				case network.EventRoundResult:
					gotResult = true
				case network.EventCaptureWebcam:
					accepted = true
					break wait
				case network.EventInvalidImage:
					break wait
				}
			}
		}
		if !gotResult {
			if _, err := b.waitFor(&result, network.EventRoundResult); err != nil {
				return err
			}
		}
		log.Printf("[Bot] Round %d winner: %q. Score %d x %d.", result.Round, result.Winner,
			result.GameData.Player1.Score, result.GameData.Player2.Score)
		if result.GameData.Winner != "" {
			log.Printf("[Bot] Match over. Winner: %s (me: %s)", result.GameData.Winner, b.id)
			return nil
		}
	}
}
