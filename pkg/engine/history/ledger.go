// Package history keeps a local ledger of sync run totals.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DrSkyle/snipesync/pkg/engine/report"
)

// Snapshot is one sync run reduced to its counters.
type Snapshot struct {
	Timestamp  int64  `json:"timestamp"`
	RunID      string `json:"run_id"`
	DryRun     bool   `json:"dry_run,omitempty"`
	Accounts   int    `json:"accounts"`
	Discovered int    `json:"discovered"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
}

// FromRun builds the snapshot for a finished run.
func FromRun(run *report.Run) Snapshot {
	return Snapshot{
		Timestamp:  run.FinishedAt.Unix(),
		RunID:      run.RunID,
		DryRun:     run.DryRun,
		Accounts:   run.Totals.Accounts,
		Discovered: run.Totals.Discovered,
		Created:    run.Totals.Created,
		Updated:    run.Totals.Updated,
		Failed:     run.Totals.Failed,
		Skipped:    run.Totals.Skipped,
	}
}

// Backend defines the storage interface for snapshots.
type Backend interface {
	Append(s Snapshot) error
	Load(n int) ([]Snapshot, error)
}

// Client manages historical state.
type Client struct {
	backend Backend
}

// NewClient initializes a history client.
func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

// Record appends the snapshot of a finished run.
func (c *Client) Record(run *report.Run) error {
	return c.backend.Append(FromRun(run))
}

// LoadWindow retrieves the last n snapshots, oldest first.
func (c *Client) LoadWindow(n int) ([]Snapshot, error) {
	return c.backend.Load(n)
}

// NewLocalBackend creates a file-based backend at the specified path.
func NewLocalBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// FileBackend stores one JSON snapshot per line.
type FileBackend struct {
	Path string
}

func (b *FileBackend) Append(s Snapshot) error {
	if b.Path == "" {
		return fmt.Errorf("history ledger path not set")
	}
	if err := os.MkdirAll(filepath.Dir(b.Path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(b.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

func (b *FileBackend) Load(n int) ([]Snapshot, error) {
	f, err := os.Open(b.Path)
	if os.IsNotExist(err) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var history []Snapshot
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var s Snapshot
		// Corrupt lines are skipped.
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			continue
		}
		history = append(history, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if n > 0 && len(history) > n {
		return history[len(history)-n:], nil
	}
	return history, nil
}

// DefaultLedgerPath is ~/.snipesync/ledger.jsonl.
func DefaultLedgerPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".snipesync", "ledger.jsonl"), nil
}
