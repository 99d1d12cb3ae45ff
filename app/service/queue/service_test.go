package queue

import "testing"

func TestAddAndDrain(t *testing.T) {
	svc := NewService(2)

	if !svc.Add(Command{Kind: KindType, Text: "Рим"}) || !svc.Add(Command{Kind: KindDelete, N: 4}) {
		t.Fatalf("expected commands to be queued")
	}
	if svc.Add(Command{Kind: KindStats}) {
		t.Fatalf("full queue must drop commands")
	}

	first := <-svc.Channel()
	if first.Kind != KindType || first.Text != "Рим" {
		t.Fatalf("unexpected first command: %+v", first)
	}
	second := <-svc.Channel()
	if second.Kind != KindDelete || second.N != 4 {
		t.Fatalf("unexpected second command: %+v", second)
	}
}

func TestShutdown(t *testing.T) {
	svc := NewService(1)
	if err := svc.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Shutdown(); err != nil {
		t.Fatalf("second shutdown must be harmless: %v", err)
	}
	if svc.Add(Command{Kind: KindQuit}) {
		t.Fatalf("closed queue must reject commands")
	}
	if _, ok := <-svc.Channel(); ok {
		t.Fatalf("channel must be closed")
	}
}

func TestKindString(t *testing.T) {
	if KindSearch.String() != "search" || Kind(99).String() != "unknown" {
		t.Fatalf("unexpected kind names")
	}
}
