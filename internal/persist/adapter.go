// Package persist mirrors the store's state tree to a key-value backend. Every
// failure degrades to "keep going with what is in memory": nothing here
// returns an error to the store.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stakeboard/internal/domain"
	"stakeboard/internal/repo"
)

const (
	DefaultKey      = "stakeboard.state"
	DefaultVersion  = 1
	DefaultDebounce = 500 * time.Millisecond
	defaultTimeout  = 5 * time.Second
)

// Envelope is the stored record. A version mismatch invalidates it wholesale.
type Envelope struct {
	Version int          `json:"version"`
	State   domain.State `json:"state"`
}

// Adapter reads and writes the envelope under one key.
type Adapter struct {
	KV       repo.KV
	Key      string
	Version  int
	Fallback func() domain.State
	Logger   *slog.Logger
	Timeout  time.Duration
}

func (a Adapter) key() string {
	if a.Key == "" {
		return DefaultKey
	}
	return a.Key
}

func (a Adapter) version() int {
	if a.Version == 0 {
		return DefaultVersion
	}
	return a.Version
}

func (a Adapter) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a Adapter) context() (context.Context, context.CancelFunc) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Encode serialises the envelope for state.
func (a Adapter) Encode(s domain.State) ([]byte, error) {
	data, err := json.Marshal(Envelope{Version: a.version(), State: s})
	if err != nil {
		return nil, fmt.Errorf("marshal state envelope: %w", err)
	}
	return data, nil
}

// Decode parses a stored envelope. It fails on malformed data and on a version
// other than the adapter's.
func (a Adapter) Decode(data []byte) (domain.State, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.State{}, fmt.Errorf("invalid state envelope: %w", err)
	}
	if env.Version != a.version() {
		return domain.State{}, fmt.Errorf("state version %d does not match %d", env.Version, a.version())
	}
	return env.State, nil
}

// Save writes the state. Failures are logged and the previously stored value
// is left as it was.
func (a Adapter) Save(s domain.State) {
	if err := a.write(s); err != nil {
		a.logger().Warn("persist state", "key", a.key(), "err", err)
	}
}

func (a Adapter) write(s domain.State) error {
	data, err := a.Encode(s)
	if err != nil {
		return err
	}
	ctx, cancel := a.context()
	defer cancel()
	return a.KV.Set(ctx, a.key(), data)
}

// Load hydrates the initial state. The second result reports whether the value
// came from the store rather than the fallback dataset. Unreadable or stale
// envelopes are deleted before falling back.
func (a Adapter) Load(ctx context.Context) (domain.State, bool) {
	log := a.logger()
	data, err := a.KV.Get(ctx, a.key())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Warn("read persisted state", "key", a.key(), "err", err)
		}
		return a.fallback(), false
	}
	s, err := a.Decode(data)
	if err != nil {
		log.Info("discarding persisted state", "key", a.key(), "err", err)
		if delErr := a.KV.Delete(ctx, a.key()); delErr != nil {
			log.Warn("delete persisted state", "key", a.key(), "err", delErr)
		}
		return a.fallback(), false
	}
	return s, true
}

// Clear removes the stored envelope.
func (a Adapter) Clear(ctx context.Context) error {
	return a.KV.Delete(ctx, a.key())
}

func (a Adapter) fallback() domain.State {
	if a.Fallback != nil {
		return a.Fallback()
	}
	return domain.State{}
}
