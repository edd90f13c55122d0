package events_test

import (
	"testing"

	"github.com/ardanlabs/iotledger/foundation/events"
)

func TestFanOut(t *testing.T) {
	evts := events.New(1)

	a := evts.Acquire("a")
	b := evts.Acquire("b")

	if evts.Acquire("a") != a {
		t.Fatalf("expected the same channel for the same id")
	}

	evts.Send("blk[1] sealed")
	evts.Send("dropped")

	for name, ch := range map[string]<-chan events.Event{"a": a, "b": b} {
		e := <-ch
		if e.Message != "blk[1] sealed" || e.Time.IsZero() {
			t.Fatalf("%s: unexpected event %+v", name, e)
		}

		select {
		case e := <-ch:
			t.Fatalf("%s: expected the second event to be dropped, got %+v", name, e)
		default:
		}
	}

	if err := evts.Release("a"); err != nil {
		t.Fatalf("unable to release: %v", err)
	}
	if _, open := <-a; open {
		t.Fatalf("expected a released channel to be closed")
	}
	if err := evts.Release("a"); err == nil {
		t.Fatalf("expected an error releasing an unknown id")
	}

	evts.Shutdown()
	if _, open := <-b; open {
		t.Fatalf("expected shutdown to close every channel")
	}
	if evts.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after shutdown")
	}
}
