package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/encoding/japanese"

	"github.com/crimson-sun/repeatwatch/internal/connector"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func texts(us []model.Utterance) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Text
	}
	return out
}

func TestDecoder(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", "shift_jis", "Shift-JIS", "sjis", "euc-jp", "EUCJP"} {
		if _, err := Decoder(name); err != nil {
			t.Errorf("Decoder(%q): %v", name, err)
		}
	}
	if _, err := Decoder("latin-9000"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestQueryUTF8(t *testing.T) {
	path := writeFile(t, "t.txt", []byte("こんにちは\r\n\n{\"text\":\"母はどこ\",\"timestamp\":\"2026-02-19T12:00:00Z\"}\nありがとう"))
	c := New()
	got, err := c.Query(context.Background(), connector.ConnectorConfig{Path: path}, connector.QueryParams{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"こんにちは", "母はどこ", "ありがとう"}
	if g := texts(got); len(g) != 3 || g[0] != want[0] || g[1] != want[1] || g[2] != want[2] {
		t.Fatalf("got %v, want %v", g, want)
	}
	if got[1].Timestamp.IsZero() || got[0].Source != "file" {
		t.Fatalf("unexpected parse: %+v", got[:2])
	}
}

func TestQueryJapaneseEncodings(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		encode   func(string) (string, error)
	}{
		{"shift_jis", "shift_jis", japanese.ShiftJIS.NewEncoder().String},
		{"euc-jp", "euc-jp", japanese.EUCJP.NewEncoder().String},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.encode("今日は何曜日ですか\n母はどこにいるの\n")
			if err != nil {
				t.Fatal(err)
			}
			path := writeFile(t, tt.name+".txt", []byte(raw))
			got, err := New().Query(context.Background(), connector.ConnectorConfig{Path: path, Encoding: tt.encoding}, connector.QueryParams{})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if g := texts(got); len(g) != 2 || g[0] != "今日は何曜日ですか" || g[1] != "母はどこにいるの" {
				t.Fatalf("decoded %v", g)
			}
		})
	}
}

func TestQueryMissingFile(t *testing.T) {
	_, err := New().Query(context.Background(), connector.ConnectorConfig{Path: filepath.Join(t.TempDir(), "missing")}, connector.QueryParams{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStreamWithoutFollow(t *testing.T) {
	path := writeFile(t, "t.txt", []byte("a\nb\nlast without newline"))
	ch, err := New().Stream(context.Background(), connector.ConnectorConfig{Path: path})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	var got []model.Utterance
	for u := range ch {
		got = append(got, u)
	}
	if g := texts(got); len(g) != 3 || g[2] != "last without newline" {
		t.Fatalf("got %v", g)
	}
}

func TestStreamFollow(t *testing.T) {
	path := writeFile(t, "t.txt", []byte("first\n"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := New().Stream(ctx, connector.ConnectorConfig{Path: path, Follow: true})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	recv := func() model.Utterance {
		t.Helper()
		select {
		case u, ok := <-ch:
			if !ok {
				t.Fatal("channel closed early")
			}
			return u
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for utterance")
		}
		return model.Utterance{}
	}

	if u := recv(); u.Text != "first" {
		t.Fatalf("got %q", u.Text)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if u := recv(); u.Text != "second" {
		t.Fatalf("got %q", u.Text)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestStreamUnknownEncoding(t *testing.T) {
	path := writeFile(t, "t.txt", []byte("x\n"))
	if _, err := New().Stream(context.Background(), connector.ConnectorConfig{Path: path, Encoding: "ebcdic"}); err == nil {
		t.Fatal("expected error")
	}
}
