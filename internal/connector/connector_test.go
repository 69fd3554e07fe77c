package connector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

type nopConnector struct{}

func (nopConnector) Stream(context.Context, ConnectorConfig) (<-chan model.Utterance, error) {
	ch := make(chan model.Utterance)
	close(ch)
	return ch, nil
}

func (nopConnector) Query(context.Context, ConnectorConfig, QueryParams) ([]model.Utterance, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Register("zz-test", func() Connector { return nopConnector{} })
	Register("aa-test", func() Connector { return nopConnector{} })

	ctor, err := Get("zz-test")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ctor() == nil {
		t.Fatal("constructor returned nil")
	}

	providers := Providers()
	ia, iz := -1, -1
	for i, p := range providers {
		switch p {
		case "aa-test":
			ia = i
		case "zz-test":
			iz = i
		}
	}
	if ia < 0 || iz < 0 || ia > iz {
		t.Fatalf("expected sorted providers containing both, got %v", providers)
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestParseLine(t *testing.T) {
	ts := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		line string
		ok   bool
		want model.Utterance
	}{
		{"blank", "   ", false, model.Utterance{}},
		{"plain", " こんにちは ", true, model.Utterance{Text: "こんにちは", Confidence: 1, IsFinal: true, Source: "t"}},
		{"bom", "\ufeffこんにちは", true, model.Utterance{Text: "こんにちは", Confidence: 1, IsFinal: true, Source: "t"}},
		{"json defaults", `{"text":"母はどこ"}`, true, model.Utterance{Text: "母はどこ", Confidence: 1, IsFinal: true, Source: "t"}},
		{"json full", `{"text":"母はどこ","confidence":0.4,"isFinal":false,"timestamp":"2026-02-19T12:00:00Z"}`, true,
			model.Utterance{Text: "母はどこ", Confidence: 0.4, IsFinal: false, Timestamp: ts, Source: "t"}},
		{"json without text is plain", `{"foo":1}`, true, model.Utterance{Text: `{"foo":1}`, Confidence: 1, IsFinal: true, Source: "t"}},
		{"broken json is plain", `{"text":`, true, model.Utterance{Text: `{"text":`, Confidence: 1, IsFinal: true, Source: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line, "t")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Text != tt.want.Text || got.Confidence != tt.want.Confidence || got.IsFinal != tt.want.IsFinal ||
				!got.Timestamp.Equal(tt.want.Timestamp) || got.Source != tt.want.Source {
				t.Fatalf("ParseLine = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQueryParamsApply(t *testing.T) {
	ts := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	us := []model.Utterance{
		{Text: "a", Timestamp: ts},
		{Text: "b", Timestamp: ts.Add(time.Hour)},
		{Text: "c"},
		{Text: "d", Timestamp: ts.Add(2 * time.Hour)},
	}

	got := QueryParams{Start: ts.Add(30 * time.Minute), End: ts.Add(90 * time.Minute)}.Apply(us)
	if len(got) != 2 || got[0].Text != "b" || got[1].Text != "c" {
		t.Fatalf("time filter: got %+v", got)
	}

	got = QueryParams{Limit: 3}.Apply(us)
	if len(got) != 3 || got[2].Text != "c" {
		t.Fatalf("limit: got %+v", got)
	}

	if got := (QueryParams{}).Apply(us); len(got) != 4 {
		t.Fatalf("zero params should keep everything, got %d", len(got))
	}
}
