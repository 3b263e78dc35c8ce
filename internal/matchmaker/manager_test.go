package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gesturejokenpo/internal/game"
	"gesturejokenpo/internal/game/gesture"
	"gesturejokenpo/internal/services/events"
)

type labelClassifier struct{}

func (labelClassifier) Predict(_ context.Context, image []byte) (gesture.Gesture, error) {
	g, err := gesture.Parse(string(image))
	if err != nil {
		return gesture.None, nil
	}
	return g, nil
}

type notification struct {
	kind   string
	player string
	winner string
	status game.Status
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []notification
}

func (n *recordingNotifier) RoundResolved(player string, res game.RoundResult, status game.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, notification{"round", player, res.Winner, status})
}

func (n *recordingNotifier) OpponentLeft(player string, status game.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, notification{"left", player, "", status})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.items...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

type fixture struct {
	m         *Manager
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(maxScore int) *fixture {
	f := &fixture{notifier: &recordingNotifier{}, publisher: &recordingPublisher{}}
	counter := 0
	f.m = New(Config{
		MaxScore:   maxScore,
		Classifier: labelClassifier{},
		Notifier:   f.notifier,
		Publisher:  f.publisher,
		NewID: func() string {
			counter++
			return fmt.Sprintf("game-%d", counter)
		},
	})
	return f
}

type enqueueResult struct {
	status game.Status
	err    error
}

func enqueueAsync(m *Manager, ctx context.Context, player string) <-chan enqueueResult {
	ch := make(chan enqueueResult, 1)
	go func() {
		st, err := m.Enqueue(ctx, player)
		ch <- enqueueResult{st, err}
	}()
	return ch
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return")
	}
	var zero T
	return zero
}

// pair coloca a e b na fila nessa ordem e devolve os snapshots.
func pair(t *testing.T, m *Manager, a, b string) (game.Status, game.Status) {
	t.Helper()
	chA := enqueueAsync(m, context.Background(), a)
	waitFor(t, a+" in queue", func() bool {
		q := m.Queue()
		return len(q) > 0 && q[len(q)-1] == a
	})
	stB, err := m.Enqueue(context.Background(), b)
	if err != nil {
		t.Fatalf("Enqueue(%s) returned error: %v", b, err)
	}
	resA := await(t, chA)
	if resA.err != nil {
		t.Fatalf("Enqueue(%s) returned error: %v", a, resA.err)
	}
	return resA.status, stB
}

func TestEnqueueTwoPlayersShareGame(t *testing.T) {
	f := newFixture(3)
	stA, stB := pair(t, f.m, "alice", "bob")

	if stA.ID == "" || stA.ID != stB.ID {
		t.Fatalf("players got different games: %q / %q", stA.ID, stB.ID)
	}
	if stA.Player1.Name != "alice" || stA.Player2.Name != "bob" {
		t.Errorf("unexpected players in status: %+v", stA)
	}
	if len(f.m.Queue()) != 0 {
		t.Errorf("queue should be empty, got %v", f.m.Queue())
	}
	if f.m.ActiveGames() != 1 {
		t.Errorf("active games = %d, want 1", f.m.ActiveGames())
	}
	if got := f.publisher.subjects(); len(got) != 1 || got[0] != events.SubjectGameStarted {
		t.Errorf("published %v, want one game.started", got)
	}
}

func TestEnqueuePairsInArrivalOrder(t *testing.T) {
	f := newFixture(3)
	players := []string{"p0", "p1", "p2", "p3", "p4", "p5"}
	results := make(map[string]<-chan enqueueResult)

	for i, p := range players {
		results[p] = enqueueAsync(f.m, context.Background(), p)
		if i%2 == 0 {
			waitFor(t, p+" in queue", func() bool {
				q := f.m.Queue()
				return len(q) == 1 && q[0] == p
			})
		} else {
			// O próximo só entra depois que este foi pareado.
			waitFor(t, p+" matched", func() bool { return len(f.m.Queue()) == 0 })
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < len(players); i += 2 {
		first := await(t, results[players[i]])
		second := await(t, results[players[i+1]])
		if first.err != nil || second.err != nil {
			t.Fatalf("enqueue errors: %v / %v", first.err, second.err)
		}
		if first.status.ID != second.status.ID {
			t.Errorf("%s and %s were not matched together", players[i], players[i+1])
		}
		if first.status.Player1.Name != players[i] || first.status.Player2.Name != players[i+1] {
			t.Errorf("arrival order not preserved: %+v", first.status)
		}
		if seen[first.status.ID] {
			t.Errorf("game %s reused", first.status.ID)
		}
		seen[first.status.ID] = true
	}
	if len(f.m.Queue()) != 0 {
		t.Errorf("queue should be empty, got %v", f.m.Queue())
	}
	if f.m.ActiveGames() != 3 {
		t.Errorf("active games = %d, want 3", f.m.ActiveGames())
	}
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	f := newFixture(3)

	waiting := enqueueAsync(f.m, context.Background(), "alice")
	waitFor(t, "alice in queue", func() bool { return len(f.m.Queue()) == 1 })

	if _, err := f.m.Enqueue(context.Background(), "alice"); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("expected ErrAlreadyQueued while waiting, got %v", err)
	}

	if _, err := f.m.Enqueue(context.Background(), "bob"); err != nil {
		t.Fatal(err)
	}
	await(t, waiting)

	if _, err := f.m.Enqueue(context.Background(), "bob"); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("expected ErrAlreadyQueued while in game, got %v", err)
	}
}

func TestEnqueueCancelRemovesPlayer(t *testing.T) {
	f := newFixture(3)
	ctx, cancel := context.WithCancel(context.Background())

	waiting := enqueueAsync(f.m, ctx, "alice")
	waitFor(t, "alice in queue", func() bool { return len(f.m.Queue()) == 1 })
	cancel()

	res := await(t, waiting)
	if !errors.Is(res.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.err)
	}
	if len(f.m.Queue()) != 0 {
		t.Errorf("queue should be empty after cancel, got %v", f.m.Queue())
	}

	// Um novo jogador não pode ser pareado com quem já saiu.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, err := f.m.Enqueue(ctx2, "bob"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("bob should still be waiting, got %v", err)
	}
}

func TestLeaveWhileQueuedUnblocksEnqueue(t *testing.T) {
	f := newFixture(3)
	waiting := enqueueAsync(f.m, context.Background(), "alice")
	waitFor(t, "alice in queue", func() bool { return len(f.m.Queue()) == 1 })

	f.m.Leave("alice")

	res := await(t, waiting)
	if !errors.Is(res.err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", res.err)
	}
	if len(f.m.Queue()) != 0 {
		t.Errorf("queue = %v, want empty", f.m.Queue())
	}
}

func TestPlayRoundUnknownPlayer(t *testing.T) {
	f := newFixture(3)
	_, _, err := f.m.PlayRound(context.Background(), "ghost", []byte("rock"))
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := f.m.GameStatus("nope"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

type roundResult struct {
	res    game.RoundResult
	status game.Status
	err    error
}

func playAsync(m *Manager, player, image string) <-chan roundResult {
	ch := make(chan roundResult, 1)
	go func() {
		res, st, err := m.PlayRound(context.Background(), player, []byte(image))
		ch <- roundResult{res, st, err}
	}()
	return ch
}

func TestPlayRoundNotifiesBothPlayersOnce(t *testing.T) {
	f := newFixture(3)
	pair(t, f.m, "alice", "bob")

	a := playAsync(f.m, "alice", "rock")
	b := playAsync(f.m, "bob", "paper")
	ra, rb := await(t, a), await(t, b)
	if ra.err != nil || rb.err != nil {
		t.Fatalf("errors: %v / %v", ra.err, rb.err)
	}
	if ra.res.Winner != "bob" || rb.res.Winner != "bob" {
		t.Errorf("winners = %q / %q, want bob", ra.res.Winner, rb.res.Winner)
	}

	notes := f.notifier.all()
	if len(notes) != 2 {
		t.Fatalf("notifications = %+v, want one per player", notes)
	}
	got := map[string]bool{}
	for _, n := range notes {
		if n.kind != "round" || n.winner != "bob" || n.status.Score("bob") != 1 {
			t.Errorf("unexpected notification %+v", n)
		}
		got[n.player] = true
	}
	if !got["alice"] || !got["bob"] {
		t.Errorf("notifications went to %v", got)
	}

	subjects := f.publisher.subjects()
	if len(subjects) != 2 || subjects[1] != events.SubjectRoundResolved {
		t.Errorf("published %v", subjects)
	}
}

func TestNeutralImageIsRejectedThroughManager(t *testing.T) {
	f := newFixture(3)
	pair(t, f.m, "alice", "bob")

	res, st, err := f.m.PlayRound(context.Background(), "alice", []byte("neutral"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Accepted {
		t.Error("neutral image should not be accepted")
	}
	if st.Score("alice") != 0 || st.Score("bob") != 0 {
		t.Errorf("score changed: %+v", st)
	}
	if len(f.notifier.all()) != 0 {
		t.Error("rejected image must not notify anyone")
	}
}

func TestFinishedGameReleasesPlayers(t *testing.T) {
	f := newFixture(1)
	pair(t, f.m, "alice", "bob")

	a := playAsync(f.m, "alice", "rock")
	b := playAsync(f.m, "bob", "scissors")
	ra, rb := await(t, a), await(t, b)
	if ra.err != nil || rb.err != nil {
		t.Fatalf("errors: %v / %v", ra.err, rb.err)
	}
	if ra.status.Winner != "alice" && rb.status.Winner != "alice" {
		t.Fatalf("expected alice to win the game, got %+v / %+v", ra.status, rb.status)
	}

	waitFor(t, "game release", func() bool { return f.m.ActiveGames() == 0 })
	if _, err := f.m.Status("alice"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("finished game should be released, got %v", err)
	}

	found := false
	for _, s := range f.publisher.subjects() {
		if s == events.SubjectGameFinished {
			found = true
		}
	}
	if !found {
		t.Errorf("game.finished not published: %v", f.publisher.subjects())
	}

	// Os dois podem jogar de novo.
	stA, stB := pair(t, f.m, "bob", "alice")
	if stA.ID != stB.ID || stA.ID == ra.status.ID {
		t.Errorf("rematch should be a new game, got %q / %q", stA.ID, stB.ID)
	}
}

func TestLeaveAbandonsGameAndNotifiesOpponent(t *testing.T) {
	f := newFixture(3)
	pair(t, f.m, "alice", "bob")

	a := playAsync(f.m, "alice", "rock")
	waitFor(t, "alice waiting", func() bool {
		g, err := f.m.gameOf("alice")
		if err != nil {
			return false
		}
		st, _ := g.RoundState("alice")
		return st.Ready
	})

	f.m.Leave("bob")

	ra := await(t, a)
	if !errors.Is(ra.err, game.ErrOpponentLeft) {
		t.Errorf("expected ErrOpponentLeft, got %v", ra.err)
	}

	notes := f.notifier.all()
	if len(notes) != 1 || notes[0].kind != "left" || notes[0].player != "alice" {
		t.Fatalf("notifications = %+v", notes)
	}
	if !notes[0].status.Abandoned || notes[0].status.Winner != "alice" {
		t.Errorf("status = %+v", notes[0].status)
	}
	if f.m.ActiveGames() != 0 {
		t.Errorf("abandoned game still active")
	}

	// Sair de novo não faz nada.
	f.m.Leave("bob")
	f.m.Leave("alice")
	if len(f.notifier.all()) != 1 {
		t.Error("leaving twice should not notify again")
	}
}

func TestRequestCountdownThroughManager(t *testing.T) {
	f := newFixture(3)
	pair(t, f.m, "alice", "bob")

	opp, both, err := f.m.RequestCountdown("alice")
	if err != nil || opp != "bob" || both {
		t.Fatalf("alice click = %q, %v, %v", opp, both, err)
	}
	opp, both, err = f.m.RequestCountdown("bob")
	if err != nil || opp != "alice" || !both {
		t.Fatalf("bob click = %q, %v, %v", opp, both, err)
	}
	if _, _, err := f.m.RequestCountdown("ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
	if opp, _ := f.m.Opponent("bob"); opp != "alice" {
		t.Errorf("Opponent(bob) = %q", opp)
	}
}
