package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gesturejokenpo/internal/game/gesture"
)

// DefaultSubject é o assunto em que os workers do modelo respondem.
const DefaultSubject = "jokenpo.classify"

// NATSClassifier usa request/reply do NATS: a imagem vai como corpo da
// mensagem e o worker responde com o mesmo JSON do endpoint HTTP.
type NATSClassifier struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

func NewNATS(conn *nats.Conn, subject string, timeout time.Duration) *NATSClassifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSClassifier{conn: conn, subject: subject, timeout: timeout}
}

func (c *NATSClassifier) Predict(ctx context.Context, image []byte) (gesture.Gesture, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.conn.RequestWithContext(ctx, c.subject, image)
	if err != nil {
		return gesture.None, fmt.Errorf("%w: request on %s: %v", ErrUnavailable, c.subject, err)
	}
	return decodePrediction(msg.Data)
}
