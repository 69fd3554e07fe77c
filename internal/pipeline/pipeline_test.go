package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/repeatwatch/internal/connector"
	"github.com/crimson-sun/repeatwatch/internal/engine"
	"github.com/crimson-sun/repeatwatch/internal/engine/classifier"
	"github.com/crimson-sun/repeatwatch/internal/engine/scorer"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/store"
)

// --- mocks ---

// mockProcessor accepts every final utterance except those whose text is
// dropOn, and echoes the text into the record.
type mockProcessor struct {
	dropOn string
}

func (m *mockProcessor) Submit(_ context.Context, u model.Utterance) (model.Record, engine.Outcome) {
	if !u.IsFinal {
		return model.Record{}, engine.Interim
	}
	if u.Text == m.dropOn {
		return model.Record{}, engine.Cooldown
	}
	return model.Record{ID: u.Text, Content: u.Text, Category: model.CategoryNew}, engine.Accepted
}

type mockConnector struct {
	utterances []model.Utterance
	err        error
}

func (m *mockConnector) Stream(_ context.Context, _ connector.ConnectorConfig) (<-chan model.Utterance, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan model.Utterance, len(m.utterances))
	for _, u := range m.utterances {
		ch <- u
	}
	close(ch)
	return ch, nil
}

func (m *mockConnector) Query(_ context.Context, _ connector.ConnectorConfig, params connector.QueryParams) ([]model.Utterance, error) {
	if m.err != nil {
		return nil, m.err
	}
	return params.Apply(m.utterances), nil
}

type mockOutput struct {
	mu      sync.Mutex
	records []model.Record
	failOn  string
	closed  bool
}

func (m *mockOutput) Write(_ context.Context, r model.Record) error {
	if r.Content == m.failOn {
		return errors.New("mock: sink unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *mockOutput) Close() error {
	m.closed = true
	return nil
}

func (m *mockOutput) Records() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record(nil), m.records...)
}

func final(text string) model.Utterance {
	return model.Utterance{Text: text, Confidence: 1, IsFinal: true}
}

// --- tests ---

func TestStreamWritesAccepted(t *testing.T) {
	conn := &mockConnector{utterances: []model.Utterance{
		final("a"),
		{Text: "partial", IsFinal: false},
		final("dup"),
		final("b"),
	}}
	out := &mockOutput{}
	p := New(conn, &mockProcessor{dropOn: "dup"}, out)

	if err := p.Stream(context.Background(), connector.ConnectorConfig{}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	recs := out.Records()
	if len(recs) != 2 || recs[0].Content != "a" || recs[1].Content != "b" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if acc, drop := p.Counts(); acc != 2 || drop != 2 {
		t.Fatalf("counts = %d/%d, want 2/2", acc, drop)
	}
	if err := p.Close(); err != nil || !out.closed {
		t.Fatalf("close: err=%v closed=%v", err, out.closed)
	}
}

func TestStreamConnectorError(t *testing.T) {
	p := New(&mockConnector{err: errors.New("no device")}, &mockProcessor{}, &mockOutput{})
	if err := p.Stream(context.Background(), connector.ConnectorConfig{}); err == nil {
		t.Fatal("expected connector error")
	}
}

func TestStreamOutputError(t *testing.T) {
	conn := &mockConnector{utterances: []model.Utterance{final("a"), final("bad"), final("c")}}
	out := &mockOutput{failOn: "bad"}
	p := New(conn, &mockProcessor{}, out)
	if err := p.Stream(context.Background(), connector.ConnectorConfig{}); err == nil {
		t.Fatal("expected output error")
	}
	if len(out.Records()) != 1 {
		t.Fatalf("expected processing to stop at the failing write, got %d", len(out.Records()))
	}
}

func TestStreamContextCancel(t *testing.T) {
	ch := make(chan model.Utterance)
	conn := &blockingConnector{ch: ch}
	p := New(conn, &mockProcessor{}, &mockOutput{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Stream(ctx, connector.ConnectorConfig{}) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}
}

type blockingConnector struct{ ch chan model.Utterance }

func (b *blockingConnector) Stream(context.Context, connector.ConnectorConfig) (<-chan model.Utterance, error) {
	return b.ch, nil
}

func (b *blockingConnector) Query(context.Context, connector.ConnectorConfig, connector.QueryParams) ([]model.Utterance, error) {
	return nil, nil
}

func TestReplayAppliesParams(t *testing.T) {
	conn := &mockConnector{utterances: []model.Utterance{final("a"), final("b"), final("c")}}
	out := &mockOutput{}
	p := New(conn, &mockProcessor{}, out)
	if err := p.Replay(context.Background(), connector.ConnectorConfig{}, connector.QueryParams{Limit: 2}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(out.Records()) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out.Records()))
	}
}

func TestReplayThroughEngine(t *testing.T) {
	ts := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	at := func(text string, sec int) model.Utterance {
		u := final(text)
		u.Timestamp = ts.Add(time.Duration(sec) * time.Second)
		return u
	}
	conn := &mockConnector{utterances: []model.Utterance{
		at("こんにちは", 0),
		at("こんにちは", 1), // cooldown
		at("ありがとう", 10),
		at("こんにちは", 20),
	}}
	cls := classifier.New(scorer.New(nil, scorer.DefaultConfig()), classifier.DefaultRules())
	eng := engine.New(cls, store.New(nil), engine.DefaultConfig(), engine.WithClock(func() time.Time { return ts.Add(time.Minute) }))
	defer eng.Close()

	out := &mockOutput{}
	p := New(conn, eng, out)
	if err := p.Replay(context.Background(), connector.ConnectorConfig{}, connector.QueryParams{}); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	recs := out.Records()
	if len(recs) != 3 {
		t.Fatalf("expected 3 accepted records, got %d", len(recs))
	}
	want := []model.Category{model.CategoryNew, model.CategoryNew, model.CategoryFrequent}
	for i, r := range recs {
		if r.Category != want[i] {
			t.Fatalf("record %d (%s): category %s, want %s", i, r.Content, r.Category, want[i])
		}
	}
	if !recs[2].Timestamp.Equal(ts.Add(20 * time.Second)) {
		t.Fatalf("replayed record should keep the transcript time, got %s", recs[2].Timestamp)
	}
}

// pathConnector serves a different transcript per ConnectorConfig.Path.
type pathConnector struct {
	mockConnector
	files map[string][]model.Utterance
}

func (c *pathConnector) Query(_ context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.Utterance, error) {
	us, ok := c.files[cfg.Path]
	if !ok {
		return nil, errors.New("mock: no such transcript")
	}
	return params.Apply(us), nil
}

func TestReplayAllKeepsSourceOrder(t *testing.T) {
	conn := &pathConnector{files: map[string][]model.Utterance{
		"a.txt": {final("a1"), final("a2")},
		"b.txt": {final("b1")},
		"c.txt": {final("c1"), final("c2"), final("c3")},
	}}
	out := &mockOutput{}
	p := New(conn, &mockProcessor{}, out)

	cfgs := []connector.ConnectorConfig{{Path: "c.txt"}, {Path: "a.txt"}, {Path: "b.txt"}}
	if err := p.ReplayAll(context.Background(), cfgs, connector.QueryParams{Limit: 2}); err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}

	var got []string
	for _, r := range out.Records() {
		got = append(got, r.Content)
	}
	want := []string{"c1", "c2", "a1", "a2", "b1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestReplayAllFailsBeforeSubmitting(t *testing.T) {
	conn := &pathConnector{files: map[string][]model.Utterance{"a.txt": {final("a1")}}}
	out := &mockOutput{}
	p := New(conn, &mockProcessor{}, out)

	cfgs := []connector.ConnectorConfig{{Path: "a.txt"}, {Path: "missing.txt"}}
	if err := p.ReplayAll(context.Background(), cfgs, connector.QueryParams{}); err == nil {
		t.Fatal("expected error for a missing transcript")
	}
	if n := len(out.Records()); n != 0 {
		t.Fatalf("no utterance should be submitted when a source fails, got %d", n)
	}
}
