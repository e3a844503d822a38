package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"clpool/internal/model"
)

// JsonlStorage writes event and pool records to JSONL files.
type JsonlStorage struct {
	eventsPath string
	poolsPath  string
	mu         sync.Mutex
}

func NewJsonlStorage(eventsPath, poolsPath string) *JsonlStorage {
	return &JsonlStorage{eventsPath: eventsPath, poolsPath: poolsPath}
}

// PutEventBatch appends a batch of event records as JSON lines.
func (s *JsonlStorage) PutEventBatch(events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]interface{}, len(events))
	for i, e := range events {
		rows[i] = e
	}
	return s.appendLines(s.eventsPath, rows)
}

// PutPoolBatch appends a batch of pool records as JSON lines.
func (s *JsonlStorage) PutPoolBatch(pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	rows := make([]interface{}, len(pools))
	for i, p := range pools {
		rows[i] = p
	}
	return s.appendLines(s.poolsPath, rows)
}

func (s *JsonlStorage) appendLines(path string, rows []interface{}) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// ReadEvents streams event records from a JSONL file in order.
func ReadEvents(path string, fn func(model.EventRecord) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("parse event record: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ReadPools loads all pool records from a JSONL file.
func ReadPools(path string) ([]model.Pool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pools file: %w", err)
	}
	defer file.Close()

	var pools []model.Pool
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p model.Pool
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("parse pool record: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, scanner.Err()
}
