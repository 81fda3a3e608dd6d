package step

import "testing"

func TestStartedDoesNotTerminate(t *testing.T) {
	if Started.Terminates() {
		t.Error("Started should not terminate")
	}
}

func TestOpportunisticSuccessDoesNotTerminate(t *testing.T) {
	if OpportunisticSuccess.Terminates() {
		t.Error("OpportunisticSuccess should not terminate the enclosing algorithm")
	}
}

func TestMaxBBEvalReachedTerminates(t *testing.T) {
	if !MaxBBEvalReached.Terminates() {
		t.Error("MaxBBEvalReached should terminate")
	}
}

func TestCtrlCTerminates(t *testing.T) {
	if !CtrlC.Terminates() {
		t.Error("CtrlC should terminate")
	}
}

func TestStopTypeStringKnown(t *testing.T) {
	if MinFrameSizeReached.String() != "MIN_FRAME_SIZE_REACHED" {
		t.Errorf("String() = %v, want MIN_FRAME_SIZE_REACHED", MinFrameSizeReached.String())
	}
}

func TestSetStopReasonDoesNotDowngradeTerminatingReason(t *testing.T) {
	ctx := NewContext("MADS", nil)
	ctx.SetStopReason(MaxBBEvalReached)
	ctx.SetStopReason(OpportunisticSuccess)
	if ctx.StopReason != MaxBBEvalReached {
		t.Errorf("expected terminating reason to stick, got %v", ctx.StopReason)
	}
}

func TestBaseStateMachine(t *testing.T) {
	ctx := NewContext("MADS", nil)
	b := NewBase(ctx, "test-step")
	if b.State() != Created {
		t.Fatalf("expected Created, got %v", b.State())
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if b.State() != StartedState {
		t.Fatalf("expected StartedState, got %v", b.State())
	}
	b.MarkRunning()
	if b.State() != Running {
		t.Fatalf("expected Running, got %v", b.State())
	}
	if err := b.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if b.State() != Ended {
		t.Fatalf("expected Ended, got %v", b.State())
	}
}

func TestBaseReentryFromEndedAllowed(t *testing.T) {
	ctx := NewContext("MADS", nil)
	b := NewBase(ctx, "iteration")
	b.Start()
	b.MarkRunning()
	b.End()
	if err := b.Start(); err != nil {
		t.Fatalf("reentry from Ended should be allowed, got %v", err)
	}
}
