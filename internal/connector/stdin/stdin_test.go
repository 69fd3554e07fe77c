package stdin

import (
	"context"
	"strings"
	"testing"

	"github.com/crimson-sun/repeatwatch/internal/connector"
)

func TestStream(t *testing.T) {
	input := "こんにちは\n\n{\"text\":\"母はどこ\",\"confidence\":0.9}\nありがとう"
	c := New(strings.NewReader(input))
	ch, err := c.Stream(context.Background(), connector.ConnectorConfig{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	var texts []string
	for u := range ch {
		if u.Source != "stdin" {
			t.Fatalf("unexpected source %q", u.Source)
		}
		texts = append(texts, u.Text)
	}
	if len(texts) != 3 || texts[0] != "こんにちは" || texts[1] != "母はどこ" || texts[2] != "ありがとう" {
		t.Fatalf("unexpected texts: %v", texts)
	}
}

func TestStreamCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(strings.NewReader(strings.Repeat("line\n", 1000)))
	ch, err := c.Stream(ctx, connector.ConnectorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	<-ch
	cancel()
	n := 0
	for range ch {
		n++
	}
	if n >= 999 {
		t.Fatalf("stream should stop soon after cancel, drained %d", n)
	}
}

func TestQueryLimit(t *testing.T) {
	c := New(strings.NewReader("a\nb\nc\n"))
	got, err := c.Query(context.Background(), connector.ConnectorConfig{}, connector.QueryParams{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[1].Text != "b" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRegistered(t *testing.T) {
	if _, err := connector.Get("stdin"); err != nil {
		t.Fatalf("stdin connector not registered: %v", err)
	}
}
