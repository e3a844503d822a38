package storage

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"clpool/internal/model"
)

func TestJsonlEventsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")
	s := NewJsonlStorage(eventsPath, filepath.Join(dir, "pools.jsonl"))

	batch1 := []model.EventRecord{
		{Seq: 1, Pool: "0xaa", Name: "Initialize", Timestamp: 10, Data: json.RawMessage(`{"tick":0}`)},
		{Seq: 2, Pool: "0xaa", Name: "Mint", Timestamp: 11, Data: json.RawMessage(`{"amount":"5"}`)},
	}
	batch2 := []model.EventRecord{
		{Seq: 3, Pool: "0xaa", Name: "Swap", Timestamp: 12, Data: json.RawMessage(`{"amount0":"1000"}`)},
	}
	if err := s.PutEventBatch(batch1); err != nil {
		t.Fatalf("put batch 1: %v", err)
	}
	if err := s.PutEventBatch(nil); err != nil {
		t.Fatalf("empty batch must be a no-op: %v", err)
	}
	if err := s.PutEventBatch(batch2); err != nil {
		t.Fatalf("put batch 2: %v", err)
	}

	var got []model.EventRecord
	err := ReadEvents(eventsPath, func(record model.EventRecord) error {
		got = append(got, record)
		return nil
	})
	if err != nil {
		t.Fatalf("read events: %v", err)
	}

	want := append(append([]model.EventRecord{}, batch1...), batch2...)
	if len(got) != len(want) {
		t.Fatalf("record count mismatch: %d != %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Seq != want[i].Seq || got[i].Name != want[i].Name || got[i].Timestamp != want[i].Timestamp {
			t.Fatalf("record %d mismatch: %+v", i, got[i])
		}
	}
}

func TestJsonlPoolsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	poolsPath := filepath.Join(dir, "pools.jsonl")
	s := NewJsonlStorage(filepath.Join(dir, "events.jsonl"), poolsPath)

	want := []model.Pool{
		{Address: "0xaa", Token0: "0x01", Token1: "0x02", Fee: 3000, TickSpacing: 60, CreatedAt: 5},
		{Address: "0xbb", Token0: "0x01", Token1: "0x03", Fee: 500, TickSpacing: 10, CreatedAt: 6},
	}
	if err := s.PutPoolBatch(want); err != nil {
		t.Fatalf("put pools: %v", err)
	}

	got, err := ReadPools(poolsPath)
	if err != nil {
		t.Fatalf("read pools: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pools mismatch: %+v != %+v", got, want)
	}
}

func TestReadEventsStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")
	s := NewJsonlStorage(eventsPath, filepath.Join(dir, "pools.jsonl"))

	records := []model.EventRecord{
		{Seq: 1, Name: "Initialize", Data: json.RawMessage(`{}`)},
		{Seq: 2, Name: "Mint", Data: json.RawMessage(`{}`)},
	}
	if err := s.PutEventBatch(records); err != nil {
		t.Fatalf("put: %v", err)
	}

	seen := 0
	err := ReadEvents(eventsPath, func(model.EventRecord) error {
		seen++
		return errStop
	})
	if err != errStop {
		t.Fatalf("callback error must propagate, got %v", err)
	}
	if seen != 1 {
		t.Fatalf("iteration must stop after the error: %d", seen)
	}
}
