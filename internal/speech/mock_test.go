package speech

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func readFinal(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no final segment arrived")
		return ""
	}
}

func TestTextInputDeliversLinesAcrossTurns(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	in := NewTextInput(pr)
	ctx := context.Background()

	h1, err := in.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	go pw.Write([]byte("first answer\n"))
	if got := readFinal(t, h1.Finals()); got != "first answer" {
		t.Fatalf("got %q", got)
	}
	h1.Stop()

	h2, err := in.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	go pw.Write([]byte("second answer\n"))
	if got := readFinal(t, h2.Finals()); got != "second answer" {
		t.Fatalf("got %q", got)
	}
	h2.Stop()
}

func TestTextInputEOFClosesFinals(t *testing.T) {
	in := NewTextInput(strings.NewReader("only line\n"))
	h, err := in.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := readFinal(t, h.Finals()); got != "only line" {
		t.Fatalf("got %q", got)
	}
	select {
	case _, ok := <-h.Finals():
		if ok {
			t.Fatal("unexpected extra final")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("finals not closed at EOF")
	}
}

func TestScriptedInputOneAnswerPerTurn(t *testing.T) {
	in := &ScriptedInput{Answers: []string{"alpha", "", "gamma"}}
	ctx := context.Background()

	h1, _ := in.Start(ctx)
	if got := readFinal(t, h1.Finals()); got != "alpha" {
		t.Fatalf("turn 1 = %q", got)
	}
	h1.Stop()

	h2, _ := in.Start(ctx)
	select {
	case s := <-h2.Finals():
		t.Fatalf("silent turn delivered %q", s)
	case <-time.After(100 * time.Millisecond):
	}
	h2.Stop()

	h3, _ := in.Start(ctx)
	if got := readFinal(t, h3.Finals()); got != "gamma" {
		t.Fatalf("turn 3 = %q", got)
	}
	h3.Stop()
}
