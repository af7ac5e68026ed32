// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Reserved keys.
const (
	KeyMode  = "mode"
	KeyAPI   = "api"
	KeyModel = "model"
)

// Default values for the reserved keys.
const (
	DefaultMode = "default"
	DefaultAPI  = "openai"
)

// Entry is one key/value pair.
type Entry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Config is an ordered set of unique key/value entries.
// It is not safe for concurrent mutation; the interactive loop only touches
// it between reads.
type Config struct {
	entries []Entry
	index   map[string]int
}

// New returns a Config holding entries in order. Later duplicates replace
// the value of an earlier key without moving it.
func New(entries ...Entry) *Config {
	c := &Config{index: make(map[string]int)}
	for _, e := range entries {
		c.Set(e.Name, e.Value)
	}
	return c
}

// Defaults returns a Config with the reserved keys at their defaults.
func Defaults() *Config {
	return New(
		Entry{Name: KeyMode, Value: DefaultMode},
		Entry{Name: KeyAPI, Value: DefaultAPI},
	)
}

// NormalizeKey trims surrounding whitespace and applies Unicode NFC so that
// visually identical keys compare equal.
func NormalizeKey(key string) string {
	return norm.NFC.String(strings.TrimSpace(key))
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (string, bool) {
	i, ok := c.index[NormalizeKey(key)]
	if !ok {
		return "", false
	}
	return c.entries[i].Value, true
}

// Set stores value under key and returns the previous value, if any.
// New keys are appended; existing keys keep their position.
func (c *Config) Set(key, value string) (prev string, existed bool) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	key = NormalizeKey(key)
	if i, ok := c.index[key]; ok {
		prev = c.entries[i].Value
		c.entries[i].Value = value
		return prev, true
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, Entry{Name: key, Value: value})
	return "", false
}

// SetDefault stores value only when key is absent.
func (c *Config) SetDefault(key, value string) {
	if _, ok := c.Get(key); !ok {
		c.Set(key, value)
	}
}

// Entries returns a copy of all entries in insertion order.
func (c *Config) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Config) Len() int {
	return len(c.entries)
}

// Mode returns the current mode tag, "default" when unset or empty.
func (c *Config) Mode() string {
	if v, ok := c.Get(KeyMode); ok && v != "" {
		return v
	}
	return DefaultMode
}

// API returns the configured provider name, "openai" when unset or empty.
func (c *Config) API() string {
	if v, ok := c.Get(KeyAPI); ok && v != "" {
		return v
	}
	return DefaultAPI
}

// Model returns the model override, or "" when none is set.
func (c *Config) Model() string {
	v, _ := c.Get(KeyModel)
	return v
}

// =============================================================================
// JSON
// =============================================================================

// fileFormat is the on-disk shape of a Config.
type fileFormat struct {
	Items []Entry `json:"items"`
}

// MarshalJSON encodes the entries in insertion order.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileFormat{Items: c.Entries()})
}

// UnmarshalJSON replaces the contents of c with the decoded entries.
func (c *Config) UnmarshalJSON(data []byte) error {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = *New(f.Items...)
	return nil
}
