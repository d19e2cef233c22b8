package auv

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/mission"
	"github.com/DaPhysikist/Nautilus/internal/motor"
	"github.com/DaPhysikist/Nautilus/internal/protocol"
)

func testConfig() Config {
	return Config{
		PingInterval:      10 * time.Millisecond,
		TelemetryInterval: 10 * time.Millisecond,
		ReceiveInterval:   5 * time.Millisecond,
		ConnectionTimeout: time.Second,
		PollInterval:      5 * time.Millisecond,
		MissionTick:       5 * time.Millisecond,
		MissionMaxTime:    time.Second,
	}
}

func TestOrchestratorStop(t *testing.T) {
	link := &fakeLink{}
	o := NewOrchestrator(testConfig(), newApplyingController(), func() Link { return link })

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	o.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop")
	}

	if link.IsOpen() {
		t.Error("link must be closed after stop")
	}
}

func TestOrchestratorRestartRebuildsLink(t *testing.T) {
	var builds atomic.Int32
	newLink := func() Link {
		builds.Add(1)
		return &fakeLink{}
	}
	o := NewOrchestrator(testConfig(), newApplyingController(), newLink)

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	o.Restart()

	// Wait for the rebuilt cycle before stopping.
	deadline := time.Now().Add(2 * time.Second)
	for builds.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	o.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop after restart")
	}

	if got := builds.Load(); got != 2 {
		t.Errorf("expected 2 link builds across a restart, got %d", got)
	}
}

func TestOrchestratorStopZeroesDivingMotors(t *testing.T) {
	link := &fakeLink{open: true}
	driver := newApplyingController()
	o := NewOrchestrator(testConfig(), driver, func() Link { return link })

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	// Start the echo-location mission; it commands the dive speeds.
	link.push(protocol.EncodePing(), protocol.EncodeMission(mission.EchoLocationID))

	dive := motor.Speeds{motor.Front: mission.DefaultDiveSpeed, motor.Back: mission.DefaultDiveSpeed}
	deadline := time.Now().Add(2 * time.Second)
	diving := false
	for !diving && time.Now().Before(deadline) {
		for _, s := range driver.snapshot() {
			if s == dive {
				diving = true
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !diving {
		t.Fatal("mission never commanded the dive speeds")
	}

	o.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop")
	}

	// Whatever raced during teardown, the driver's last word is all-stop.
	applied := driver.snapshot()
	if last := applied[len(applied)-1]; last != motor.Zero {
		t.Fatalf("last applied speeds = %v, want zero", last)
	}
}

func TestOrchestratorContextCancel(t *testing.T) {
	link := &fakeLink{}
	o := NewOrchestrator(testConfig(), newApplyingController(), func() Link { return link })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not honor context cancellation")
	}
}

func TestConfigMissionBudget(t *testing.T) {
	cfg := Config{MissionMaxTime: 10 * time.Minute, MissionTick: 50 * time.Millisecond}
	if got := cfg.MissionBudget(); got != 1714 {
		t.Errorf("expected mission budget 1714, got %d", got)
	}
}
