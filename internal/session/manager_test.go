package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/flipper"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/replay"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionExpiryMinutes: 30,
		MaxSessions:          2,
		TableSlopeDegrees:    6.5,
		DefaultBallRadius:    25,
		DefaultBallMass:      1,
		RealtimeTickMs:       1,
		MaxStepMs:            1000,
	}
}

func newTestManager() *Manager {
	return NewManager(nil, nil, presets.NewStore(nil, nil, 0), testConfig())
}

// ballOverLeftFlipper drops a ball just above the stock left flipper, halfway along the arm.
func ballOverLeftFlipper() BallSpec {
	return BallSpec{Position: flipper.Vec3{340, 1560, 25}}
}

func TestCreateValidation(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	if _, err := m.Create(ctx, CreateRequest{}); !errors.Is(err, ErrNoFlippers) {
		t.Errorf("no presets: got %v", err)
	}
	if _, err := m.Create(ctx, CreateRequest{Presets: []string{"missing"}}); !errors.Is(err, presets.ErrNotFound) {
		t.Errorf("unknown preset: got %v", err)
	}
	if _, err := m.Create(ctx, CreateRequest{
		Presets: []string{"left"},
		Balls:   []BallSpec{{Position: flipper.Vec3{-50, 10, 0}}},
	}); !errors.Is(err, ErrBallOutsideTable) {
		t.Errorf("ball outside table: got %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("failed creates left %d sessions", m.ActiveCount())
	}
}

func TestMaxSessions(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := m.Create(ctx, CreateRequest{Presets: []string{"left"}}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := m.Create(ctx, CreateRequest{Presets: []string{"left"}}); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("third session: got %v", err)
	}
}

func TestStepAndCoil(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	var mu sync.Mutex
	var got []MessageType
	m.OnMessage(func(msg Message) {
		mu.Lock()
		got = append(got, msg.Type)
		mu.Unlock()
	})

	s, err := m.Create(ctx, CreateRequest{Presets: []string{"left", "right"}, Balls: []BallSpec{ballOverLeftFlipper()}})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := m.Step(s.ID, 0); !errors.Is(err, ErrBadStep) {
		t.Errorf("zero step: got %v", err)
	}
	if _, _, err := m.Step(s.ID, 5000); !errors.Is(err, ErrBadStep) {
		t.Errorf("oversized step: got %v", err)
	}
	if _, err := m.SetCoil(s.ID, 0, "kicker", true); !errors.Is(err, ErrUnknownCoil) {
		t.Errorf("unknown coil: got %v", err)
	}
	if _, err := m.SetCoil(s.ID, 7, CoilSolenoid, true); err == nil {
		t.Errorf("coil on missing flipper accepted")
	}

	before := s.Snapshot().Flippers[0].Angle
	if _, err := m.SetCoil(s.ID, 0, CoilSolenoid, true); err != nil {
		t.Fatal(err)
	}
	snap, _, err := m.Step(s.ID, 100)
	if err != nil {
		t.Fatal(err)
	}
	if snap.TimeMs != 100 {
		t.Errorf("time = %d, want 100", snap.TimeMs)
	}
	if snap.Flippers[0].Angle >= before {
		t.Errorf("energized left flipper did not move towards its end angle: %v -> %v", before, snap.Flippers[0].Angle)
	}
	if snap.Flippers[1].Angle != s.table.Flippers[1].Static.AngleStart {
		t.Errorf("idle right flipper moved to %v", snap.Flippers[1].Angle)
	}

	if _, err := m.Close(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("closed session still reachable: %v", err)
	}
	if _, err := m.Snapshot(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("snapshot of closed session without cache: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []MessageType{MessageCoil, MessageStep, MessageClosed}
	if len(got) != len(want) {
		t.Fatalf("messages %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSessionReplays(t *testing.T) {
	m := newTestManager()
	s, err := m.Create(context.Background(), CreateRequest{Presets: []string{"left-tricks"}, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.AddBall(s.ID, ballOverLeftFlipper()); err != nil {
		t.Fatal(err)
	}
	m.Step(s.ID, 40)
	m.SetCoil(s.ID, 0, CoilSolenoid, true)
	m.Step(s.ID, 120)
	m.SetCoil(s.ID, 0, CoilSolenoid, false)
	m.Step(s.ID, 60)

	rec, err := replay.FromTable(s.table)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := replay.Verify(rec); err != nil {
		t.Errorf("session did not replay: %v", err)
	}
}

func TestCloseExpired(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	s, err := m.Create(ctx, CreateRequest{Presets: []string{"left"}})
	if err != nil {
		t.Fatal(err)
	}

	if n := m.CloseExpired(ctx, time.Now()); n != 0 {
		t.Errorf("fresh session expired (%d)", n)
	}
	if n := m.CloseExpired(ctx, time.Now().Add(31*time.Minute)); n != 1 {
		t.Errorf("closed %d sessions, want 1", n)
	}
	if _, err := m.Get(s.ID); err == nil {
		t.Errorf("expired session still live")
	}
}

func TestRealtimeSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()
	s, err := m.Create(ctx, CreateRequest{Presets: []string{"left"}, Realtime: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Step(s.ID, 10); !errors.Is(err, ErrRealtime) {
		t.Errorf("manual step on realtime session: got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Info().TimeMs == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Info().TimeMs == 0 {
		t.Fatalf("realtime clock never advanced")
	}

	if _, err := m.Close(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	stopped := s.Info().TimeMs
	time.Sleep(20 * time.Millisecond)
	if s.Info().TimeMs != stopped {
		t.Errorf("closed realtime session kept running")
	}
}
