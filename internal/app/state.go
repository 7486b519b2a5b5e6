package app

import (
	"fmt"

	"echoflow/internal/config"
	"echoflow/internal/history"
	"echoflow/internal/kv"
	"echoflow/internal/settings"

	"github.com/charmbracelet/log"
)

// State is the persisted user data: settings and history on one kv store.
type State struct {
	KV       *kv.Store
	Settings *settings.Store
	History  *history.Store
}

// OpenState opens the state database in the data dir. Settings and history
// load best-effort; only an unusable database is an error.
func OpenState(cfg config.Config, logger *log.Logger) (*State, error) {
	if logger == nil {
		logger = log.Default()
	}
	store, err := kv.Open(config.DBPath(&cfg))
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	return &State{
		KV:       store,
		Settings: settings.Load(store, logger.WithPrefix("settings")),
		History:  history.Open(store, logger.WithPrefix("history")),
	}, nil
}

// Close releases the database.
func (s *State) Close() error {
	return s.KV.Close()
}
