package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
)

func TestEncode(t *testing.T) {
	msgs, err := Encode([]Event{
		{Key: "search", Value: map[string]int{"hits": 3}},
		{Key: "view", Value: "15-2021.00"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || string(msgs[0].Key) != "search" || string(msgs[0].Value) != `{"hits":3}` {
		t.Errorf("unexpected messages %+v", msgs)
	}
	if _, err := Encode([]Event{{Key: "bad", Value: make(chan int)}}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestDecodeJSON(t *testing.T) {
	type event struct {
		Type string `json:"type"`
	}
	got, err := DecodeJSON[event]([]byte(`{"type":"search"}`))
	if err != nil || got.Type != "search" {
		t.Errorf("DecodeJSON = %+v, %v", got, err)
	}
	if _, err := DecodeJSON[event]([]byte(`{`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(config.KafkaConfig{}, "t"); !errors.Is(err, ErrNoBrokers) {
		t.Errorf("NewProducer err = %v", err)
	}
	handler := func(_ context.Context, _, _ []byte) error { return nil }
	if _, err := NewConsumer(config.KafkaConfig{}, "t", handler); !errors.Is(err, ErrNoBrokers) {
		t.Errorf("NewConsumer err = %v", err)
	}
	if _, err := NewConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "t", nil); err == nil {
		t.Error("nil handler should be rejected")
	}
}
