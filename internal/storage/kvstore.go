// ABOUTME: Store backed by a generic key-value database (Badger or Charm KV).
// ABOUTME: Each partition is one JSON value under day:<metric>:<YYYY-MM-DD>.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/fitlog/internal/models"
)

// DayPrefix starts every partition key.
const DayPrefix = "day:"

// KV is the subset of a key-value database the KVStore needs.
// Get must return an error wrapping badger.ErrKeyNotFound for missing keys.
type KV interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Close() error
}

// KVStore keeps partitions as JSON documents in a KV database.
type KVStore struct {
	kv KV
}

// Compile-time check that KVStore implements Store.
var _ Store = (*KVStore)(nil)

// NewKVStore wraps a KV database.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

// PartitionKey returns the KV key of a partition.
func PartitionKey(metric models.MetricType, day models.Day) []byte {
	return []byte(DayPrefix + string(metric) + ":" + day.String())
}

func parsePartitionKey(key []byte) (models.MetricType, models.Day, bool) {
	rest, ok := strings.CutPrefix(string(key), DayPrefix)
	if !ok {
		return "", 0, false
	}
	metric, date, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, false
	}
	day, err := models.ParseDay(date)
	if err != nil {
		return "", 0, false
	}
	return models.MetricType(metric), day, true
}

// Close closes the underlying KV database.
func (s *KVStore) Close() error {
	return s.kv.Close()
}

// Write stores the table as a single value, replacing any previous one.
func (s *KVStore) Write(metric models.MetricType, day models.Day, table *models.DayTable) error {
	t := prepare(metric, day, table)
	key := PartitionKey(metric, day)

	if t.Empty() {
		if err := s.kv.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return ioErr("delete", metric, day, err)
		}
		return nil
	}

	data, err := json.Marshal(t)
	if err != nil {
		return ioErr("encode", metric, day, err)
	}
	if err := s.kv.Set(key, data); err != nil {
		return ioErr("set", metric, day, err)
	}
	return nil
}

// Read decodes the partition's JSON value.
func (s *KVStore) Read(metric models.MetricType, day models.Day) (*models.DayTable, error) {
	data, err := s.kv.Get(PartitionKey(metric, day))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, ioErr("get", metric, day, err)
	}

	var t models.DayTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, ioErr("decode", metric, day, err)
	}
	if t.Empty() {
		return nil, ErrNotFound
	}
	return &t, nil
}

// ReadRange returns existing partitions between start and end inclusive.
func (s *KVStore) ReadRange(metric models.MetricType, start, end models.Day) ([]*models.DayTable, error) {
	return readRange(s, metric, start, end)
}

// ListDays scans partition keys for the metric.
func (s *KVStore) ListDays(metric models.MetricType) ([]models.Day, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", ErrStorageIO, err)
	}

	prefix := []byte(DayPrefix + string(metric) + ":")
	var days []models.Day
	for _, k := range keys {
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		if m, day, ok := parsePartitionKey(k); ok && m == metric {
			days = append(days, day)
		}
	}
	return sortDays(days), nil
}

// Metrics returns the metric types found in partition keys.
func (s *KVStore) Metrics() ([]models.MetricType, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", ErrStorageIO, err)
	}

	seen := make(map[models.MetricType]bool)
	var out []models.MetricType
	for _, k := range keys {
		m, _, ok := parsePartitionKey(k)
		if ok && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return sortMetrics(out), nil
}
