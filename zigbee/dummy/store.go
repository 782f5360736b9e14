// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	redis "gopkg.in/redis.v5"
	yaml "gopkg.in/yaml.v2"
)

// Store persists the devices of the simulated network
type Store interface {
	Load() ([]Record, error)
	Save(record Record) error
	Delete(ieee zigbee.EUI64) error
	Close() error
}

// ErrDeviceNotFound is returned when a record does not exist in the store
var ErrDeviceNotFound = errors.New("dummy: device not found")

// MemoryDatabase is the database path that selects the in-memory store
const MemoryDatabase = ":memory:"

// NewStore returns the Store for the database path: ":memory:" for memory,
// "redis://host:port/db" for Redis, or the path of a YAML file.
func NewStore(databasePath string) (Store, error) {
	switch {
	case databasePath == MemoryDatabase:
		return NewMemory(), nil
	case strings.HasPrefix(databasePath, "redis://"):
		u, err := url.Parse(databasePath)
		if err != nil {
			return nil, err
		}
		options := &redis.Options{Addr: u.Host}
		if u.User != nil {
			options.Password, _ = u.User.Password()
		}
		if db := strings.Trim(u.Path, "/"); db != "" {
			options.DB, err = strconv.Atoi(db)
			if err != nil {
				return nil, fmt.Errorf("dummy: invalid Redis database %q", db)
			}
		}
		return NewRedis(redis.NewClient(options), ""), nil
	default:
		return NewFile(databasePath), nil
	}
}

// Memory store
type Memory struct {
	mu      sync.Mutex
	records map[zigbee.EUI64]Record
}

// NewMemory returns a new in-memory Store
func NewMemory() *Memory {
	return &Memory{records: make(map[zigbee.EUI64]Record)}
}

// Load implements Store
func (m *Memory) Load() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]Record, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	sortRecords(records)
	return records, nil
}

// Save implements Store
func (m *Memory) Save(record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.IEEE] = record
	return nil
}

// Delete implements Store
func (m *Memory) Delete(ieee zigbee.EUI64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[ieee]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.records, ieee)
	return nil
}

// Close implements Store
func (m *Memory) Close() error { return nil }

// File store keeps all records in a single YAML file
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a new Store backed by the YAML file at path. The file is
// created on the first Save.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) read() (map[string]Record, error) {
	records := make(map[string]Record)
	data, err := ioutil.ReadFile(f.path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("dummy: could not read %s: %w", f.path, err)
	}
	return records, nil
}

func (f *File) write(records map[string]Record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Load implements Store
func (f *File) Load() ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byIEEE, err := f.read()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(byIEEE))
	for _, record := range byIEEE {
		records = append(records, record)
	}
	sortRecords(records)
	return records, nil
}

// Save implements Store
func (f *File) Save(record Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.read()
	if err != nil {
		return err
	}
	records[record.IEEE.String()] = record
	return f.write(records)
}

// Delete implements Store
func (f *File) Delete(ieee zigbee.EUI64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := records[ieee.String()]; !ok {
		return ErrDeviceNotFound
	}
	delete(records, ieee.String())
	return f.write(records)
}

// Close implements Store
func (f *File) Close() error { return nil }

// DefaultRedisKey is used as key when no key is given
var DefaultRedisKey = "zigbee:devices"

// Redis store keeps the records as YAML in a Redis hash, indexed by IEEE address
type Redis struct {
	key    string
	client *redis.Client
}

// NewRedis returns a new Store with a Redis backend
func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{
		client: client,
		key:    key,
	}
}

// Load implements Store
func (r *Redis) Load() ([]Record, error) {
	res, err := r.client.HGetAll(r.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(res))
	for ieee, data := range res {
		var record Record
		if err := yaml.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("dummy: could not read device %s: %w", ieee, err)
		}
		records = append(records, record)
	}
	sortRecords(records)
	return records, nil
}

// Save implements Store
func (r *Redis) Save(record Record) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return err
	}
	return r.client.HSet(r.key, record.IEEE.String(), string(data)).Err()
}

// Delete implements Store
func (r *Redis) Delete(ieee zigbee.EUI64) error {
	deleted, err := r.client.HDel(r.key, ieee.String()).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Close implements Store
func (r *Redis) Close() error {
	return r.client.Close()
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].IEEE.String() < records[j].IEEE.String()
	})
}
