package domain

import "testing"

func TestTerminalStatusesAreNotDispatchable(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("expected %q to be terminal", status)
		}
		if status.IsDispatchable() {
			t.Fatalf("expected %q to not be dispatchable", status)
		}
	}
}

func TestFailedIsReEnterableViaDispatchOnly(t *testing.T) {
	if !StatusFailed.IsTerminal() {
		t.Fatalf("expected failed to be terminal")
	}
	if !StatusFailed.IsDispatchable() {
		t.Fatalf("expected failed to allow restart dispatch")
	}
	if !StatusFailed.CanTransition(StatusQueued) {
		t.Fatalf("expected failed -> queued to be legal")
	}
	if StatusFailed.CanTransition(StatusRunning) {
		t.Fatalf("failed -> running must go through queued")
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusQueued, true},
		{StatusDraft, StatusRunning, false},
		{StatusDraft, StatusCancelled, true},
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusFailed, true},
		{StatusQueued, StatusCancelled, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, false},
		{StatusCompleted, StatusQueued, false},
		{StatusCancelled, StatusQueued, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRunningIsNotCancellable(t *testing.T) {
	if StatusRunning.IsCancellable() {
		t.Fatalf("running campaigns are resolved by the monitor, not by cancel")
	}
	if !StatusQueued.IsCancellable() {
		t.Fatalf("expected queued to be cancellable")
	}
}
