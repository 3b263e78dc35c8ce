// Package clock fornece o horário do servidor usado nas mensagens de rodada.
package clock

import "time"

// Clock devolve o horário atual e horários futuros a partir dele.
// Os clientes usam esses valores para sincronizar a contagem regressiva.
type Clock interface {
	Now() time.Time
	After(delay time.Duration) time.Time
}

// UTC é o relógio real do servidor, sempre em UTC.
type UTC struct{}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}

func (c UTC) After(delay time.Duration) time.Time {
	return c.Now().Add(delay)
}

// Fixed é um relógio parado, útil em testes.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

func (f Fixed) After(delay time.Duration) time.Time {
	return f.At.Add(delay)
}
