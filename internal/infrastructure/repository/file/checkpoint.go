package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

type checkpointDoc struct {
	StartedAt time.Time `json:"started_at"`
	Countries []string  `json:"countries"`
}

// Checkpoint records which country partitions committed in the current
// sync cycle. Marks are persisted immediately so a crashed cycle resumes
// where it stopped; Reset removes the file once the cycle finishes clean.
type Checkpoint struct {
	path string

	mu        sync.Mutex
	startedAt time.Time
	done      map[string]struct{}
}

func NewCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{
		path: path,
		done: make(map[string]struct{}),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cp.startedAt = time.Now().UTC()
			return cp, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}
	var doc checkpointDoc
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	cp.startedAt = doc.StartedAt
	for _, c := range doc.Countries {
		cp.done[c] = struct{}{}
	}
	return cp, nil
}

func (c *Checkpoint) Done(country string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.done[country]
	return ok
}

func (c *Checkpoint) Mark(_ context.Context, country string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done[country] = struct{}{}
	return c.save()
}

func (c *Checkpoint) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done = make(map[string]struct{})
	c.startedAt = time.Now().UTC()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint %s: %w", c.path, err)
	}
	return nil
}

// save persists the done set. Caller holds the lock.
func (c *Checkpoint) save() error {
	countries := make([]string, 0, len(c.done))
	for country := range c.done {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	raw, err := sonic.Marshal(checkpointDoc{
		StartedAt: c.startedAt,
		Countries: countries,
	})
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
