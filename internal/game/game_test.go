package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gesturejokenpo/internal/game/gesture"
)

// labelClassifier trata o conteúdo da imagem como o próprio rótulo.
type labelClassifier struct{}

var errBrokenModel = errors.New("model crashed")

func (labelClassifier) Predict(_ context.Context, image []byte) (gesture.Gesture, error) {
	if string(image) == "fail" {
		return gesture.None, errBrokenModel
	}
	g, err := gesture.Parse(string(image))
	if err != nil {
		return gesture.None, nil
	}
	return g, nil
}

func newTestGame(t *testing.T, maxScore int) *Game {
	t.Helper()
	g, err := New("game-1", "alice", "bob", maxScore, labelClassifier{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return g
}

type outcome struct {
	res RoundResult
	err error
}

func playAsync(g *Game, ctx context.Context, player, image string) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		res, err := g.PlayRound(ctx, player, []byte(image))
		ch <- outcome{res, err}
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

func receive(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("PlayRound did not return")
	}
	return outcome{}
}

func playPair(t *testing.T, g *Game, imgA, imgB string) (outcome, outcome) {
	t.Helper()
	a := playAsync(g, context.Background(), "alice", imgA)
	b := playAsync(g, context.Background(), "bob", imgB)
	return receive(t, a), receive(t, b)
}

func TestNewRejectsInvalidPlayers(t *testing.T) {
	if _, err := New("g", "alice", "alice", 3, labelClassifier{}); err == nil {
		t.Error("expected error for identical players")
	}
	if _, err := New("g", "", "bob", 3, labelClassifier{}); err == nil {
		t.Error("expected error for empty player")
	}
	g, err := New("g", "alice", "bob", 0, labelClassifier{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if g.MaxScore() != DefaultMaxScore {
		t.Errorf("max score = %d, want %d", g.MaxScore(), DefaultMaxScore)
	}
}

func TestRockBeatsScissorsUntilMaxScore(t *testing.T) {
	g := newTestGame(t, 3)

	for i := 1; i <= 3; i++ {
		a, b := playPair(t, g, "rock", "scissors")
		if a.err != nil || b.err != nil {
			t.Fatalf("round %d returned errors: %v / %v", i, a.err, b.err)
		}
		if a.res.Winner != "alice" || b.res.Winner != "alice" {
			t.Fatalf("round %d winners = %q / %q, want alice", i, a.res.Winner, b.res.Winner)
		}
		if a.res.Round != i || b.res.Round != i {
			t.Errorf("round numbers = %d / %d, want %d", a.res.Round, b.res.Round, i)
		}
	}

	st := g.Status()
	if st.Winner != "alice" {
		t.Errorf("winner = %q, want alice", st.Winner)
	}
	if st.Score("alice") != 3 || st.Score("bob") != 0 {
		t.Errorf("scores = %d/%d, want 3/0", st.Score("alice"), st.Score("bob"))
	}

	_, err := g.PlayRound(context.Background(), "alice", []byte("rock"))
	if !errors.Is(err, ErrGameOver) {
		t.Errorf("expected ErrGameOver after the game ended, got %v", err)
	}
	if st.Score("alice") > st.MaxScore {
		t.Errorf("score %d exceeds max score %d", st.Score("alice"), st.MaxScore)
	}
}

func TestNeutralImageIsNotAccepted(t *testing.T) {
	g := newTestGame(t, 3)

	for _, img := range []string{"neutral", "nothing-here"} {
		res, err := g.PlayRound(context.Background(), "alice", []byte(img))
		if err != nil {
			t.Fatalf("PlayRound(%s) returned error: %v", img, err)
		}
		if res.Accepted {
			t.Errorf("PlayRound(%s) should not be accepted", img)
		}
	}

	st, _ := g.RoundState("alice")
	if st.Ready || st.HasImage || st.Choice != gesture.None {
		t.Errorf("round state changed after rejected image: %+v", st)
	}
	if g.Status().Score("alice") != 0 {
		t.Error("score changed after rejected image")
	}
}

func TestClassifierErrorLeavesRoundOpen(t *testing.T) {
	g := newTestGame(t, 3)
	_, err := g.PlayRound(context.Background(), "alice", []byte("fail"))
	if !errors.Is(err, errBrokenModel) {
		t.Fatalf("expected classifier error, got %v", err)
	}
	st, _ := g.RoundState("alice")
	if st.Ready {
		t.Error("player should not be ready after classifier failure")
	}
}

func TestFirstSubmissionWaitsForOpponent(t *testing.T) {
	g := newTestGame(t, 3)

	first := playAsync(g, context.Background(), "alice", "rock")
	waitFor(t, "alice to be ready", func() bool {
		st, _ := g.RoundState("alice")
		return st.Ready
	})

	select {
	case o := <-first:
		t.Fatalf("alice returned before bob played: %+v", o)
	case <-time.After(20 * time.Millisecond):
	}

	res, err := g.PlayRound(context.Background(), "bob", []byte("paper"))
	if err != nil {
		t.Fatalf("bob PlayRound returned error: %v", err)
	}
	if !res.Resolver || res.Winner != "bob" {
		t.Errorf("bob result = %+v, want resolver with winner bob", res)
	}

	o := receive(t, first)
	if o.err != nil {
		t.Fatalf("alice PlayRound returned error: %v", o.err)
	}
	if o.res.Resolver {
		t.Error("alice should not be the resolver")
	}
	if o.res.Winner != "bob" {
		t.Errorf("alice saw winner %q, want bob", o.res.Winner)
	}
	if o.res.Choices["alice"] != gesture.Rock || o.res.Choices["bob"] != gesture.Paper {
		t.Errorf("unexpected choices %v", o.res.Choices)
	}
}

func TestTieGivesNoPoint(t *testing.T) {
	g := newTestGame(t, 3)
	a, b := playPair(t, g, "paper", "paper")
	if a.res.Winner != "" || b.res.Winner != "" {
		t.Errorf("tie produced winner %q / %q", a.res.Winner, b.res.Winner)
	}
	st := g.Status()
	if st.Score("alice") != 0 || st.Score("bob") != 0 {
		t.Errorf("tie changed the score: %+v", st)
	}
	if st.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", st.Rounds)
	}
}

func TestRoundResolvedExactlyOnceUnderRace(t *testing.T) {
	const rounds = 200
	g := newTestGame(t, rounds+1)

	for i := 0; i < rounds; i++ {
		var wg sync.WaitGroup
		results := make([]RoundResult, 2)
		errs := make([]error, 2)
		start := make(chan struct{})
		for idx, p := range []struct{ name, img string }{{"alice", "rock"}, {"bob", "scissors"}} {
			wg.Add(1)
			go func(idx int, name, img string) {
				defer wg.Done()
				<-start
				results[idx], errs[idx] = g.PlayRound(context.Background(), name, []byte(img))
			}(idx, p.name, p.img)
		}
		close(start)
		wg.Wait()

		if errs[0] != nil || errs[1] != nil {
			t.Fatalf("round %d errors: %v / %v", i, errs[0], errs[1])
		}
		resolvers := 0
		for _, r := range results {
			if r.Resolver {
				resolvers++
			}
			if r.Winner != "alice" {
				t.Fatalf("round %d winner = %q", i, r.Winner)
			}
		}
		if resolvers != 1 {
			t.Fatalf("round %d resolved %d times", i, resolvers)
		}
	}

	if got := g.Status().Score("alice"); got != rounds {
		t.Errorf("alice score = %d, want %d", got, rounds)
	}
}

func TestRoundStateIsResetAfterResolution(t *testing.T) {
	g := newTestGame(t, 3)
	if _, err := g.RequestCountdown("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.RequestCountdown("bob"); err != nil {
		t.Fatal(err)
	}
	playPair(t, g, "rock", "paper")

	for _, p := range []string{"alice", "bob"} {
		st, err := g.RoundState(p)
		if err != nil {
			t.Fatal(err)
		}
		if st != (PlayerRound{}) {
			t.Errorf("%s round state not reset: %+v", p, st)
		}
	}
}

func TestSecondSubmissionOverwritesPending(t *testing.T) {
	g := newTestGame(t, 3)

	first := playAsync(g, context.Background(), "alice", "rock")
	waitFor(t, "alice rock", func() bool {
		st, _ := g.RoundState("alice")
		return st.Choice == gesture.Rock
	})
	second := playAsync(g, context.Background(), "alice", "paper")
	waitFor(t, "alice paper", func() bool {
		st, _ := g.RoundState("alice")
		return st.Choice == gesture.Paper
	})

	res, err := g.PlayRound(context.Background(), "bob", []byte("rock"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Winner != "alice" {
		t.Errorf("winner = %q, want alice (paper beats rock)", res.Winner)
	}
	for _, ch := range []<-chan outcome{first, second} {
		o := receive(t, ch)
		if o.err != nil || o.res.Winner != "alice" {
			t.Errorf("waiting call got %+v / %v", o.res, o.err)
		}
	}
	if g.Status().Score("alice") != 1 {
		t.Errorf("alice score = %d, want 1", g.Status().Score("alice"))
	}
}

func TestSubmitOverwritesWithoutWaiting(t *testing.T) {
	g := newTestGame(t, 3)
	ctx := context.Background()

	first, err := g.Submit(ctx, "alice", []byte("rock"))
	if err != nil || !first.Accepted() || first.Resolver() {
		t.Fatalf("first Submit = %+v, %v", first, err)
	}
	second, err := g.Submit(ctx, "alice", []byte("paper"))
	if err != nil || !second.Accepted() {
		t.Fatalf("second Submit = %+v, %v", second, err)
	}
	if !second.SameRound(first) {
		t.Error("overwrite should belong to the pending round")
	}

	last, err := g.Submit(ctx, "bob", []byte("rock"))
	if err != nil || !last.Resolver() {
		t.Fatalf("bob should resolve the round: %+v, %v", last, err)
	}

	res, err := first.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Winner != "alice" || res.Choices["alice"] != gesture.Paper {
		t.Errorf("round = %+v, want alice to win with paper", res)
	}

	next, err := g.Submit(ctx, "alice", []byte("scissors"))
	if err != nil {
		t.Fatal(err)
	}
	if next.SameRound(first) {
		t.Error("a submission after resolution belongs to the next round")
	}
	if st, _ := g.RoundState("alice"); st.Choice != gesture.Scissors {
		t.Errorf("round 2 choice = %v, want scissors", st.Choice)
	}
}

func TestAbandonReleasesWaitingOpponent(t *testing.T) {
	g := newTestGame(t, 3)

	waiting := playAsync(g, context.Background(), "alice", "rock")
	waitFor(t, "alice to be ready", func() bool {
		st, _ := g.RoundState("alice")
		return st.Ready
	})

	opponent, err := g.Abandon("bob")
	if err != nil || opponent != "alice" {
		t.Fatalf("Abandon = %q, %v", opponent, err)
	}

	o := receive(t, waiting)
	if !errors.Is(o.err, ErrOpponentLeft) {
		t.Errorf("expected ErrOpponentLeft, got %v", o.err)
	}

	st := g.Status()
	if !st.Abandoned || st.Winner != "alice" {
		t.Errorf("status after abandon = %+v", st)
	}
	if _, err := g.Abandon("alice"); !errors.Is(err, ErrGameOver) {
		t.Errorf("second Abandon should report game over, got %v", err)
	}
	if _, err := g.RequestCountdown("alice"); !errors.Is(err, ErrOpponentLeft) {
		t.Errorf("RequestCountdown after abandon = %v", err)
	}
}

func TestContextCancelUnblocksWaitingPlayer(t *testing.T) {
	g := newTestGame(t, 3)
	ctx, cancel := context.WithCancel(context.Background())

	waiting := playAsync(g, ctx, "alice", "rock")
	waitFor(t, "alice to be ready", func() bool {
		st, _ := g.RoundState("alice")
		return st.Ready
	})
	cancel()

	o := receive(t, waiting)
	if !errors.Is(o.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", o.err)
	}

	// A jogada continua registrada e a rodada pode terminar depois.
	res, err := g.PlayRound(context.Background(), "bob", []byte("scissors"))
	if err != nil || !res.Resolver || res.Winner != "alice" {
		t.Errorf("bob result = %+v, %v", res, err)
	}
}

func TestRequestCountdown(t *testing.T) {
	g := newTestGame(t, 3)

	both, err := g.RequestCountdown("alice")
	if err != nil || both {
		t.Fatalf("first click = %v, %v; want false", both, err)
	}
	both, err = g.RequestCountdown("bob")
	if err != nil || !both {
		t.Fatalf("second click = %v, %v; want true", both, err)
	}
	if _, err := g.RequestCountdown("carol"); !errors.Is(err, ErrPlayerNotInGame) {
		t.Errorf("unknown player should fail, got %v", err)
	}
}

func TestOpponent(t *testing.T) {
	g := newTestGame(t, 3)
	if o, _ := g.Opponent("alice"); o != "bob" {
		t.Errorf("opponent of alice = %q", o)
	}
	if o, _ := g.Opponent("bob"); o != "alice" {
		t.Errorf("opponent of bob = %q", o)
	}
	if _, err := g.PlayRound(context.Background(), "carol", []byte("rock")); !errors.Is(err, ErrPlayerNotInGame) {
		t.Errorf("expected ErrPlayerNotInGame, got %v", err)
	}
}
