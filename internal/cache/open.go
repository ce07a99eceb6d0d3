package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/cache/store/redis"
	"github.com/kitten/prosemd-lsp/internal/cache/store/sqlite"
	"github.com/kitten/prosemd-lsp/internal/config"
)

const appName = "prosemd-lsp"

// OpenStore opens the persistent store configured by cfg: Redis when a URL
// is set, otherwise a SQLite file. It returns a nil store without error when
// persistence is disabled.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.RedisURL != "" {
		s, err := redis.New(ctx, cfg.RedisURL, cfg.RedisExpiry())
		if err != nil {
			return nil, err
		}
		log.Infof("persistent cache at redis %s", cfg.RedisURL)
		return s, nil
	}
	if cfg.PersistentCacheDisabled() {
		return nil, nil
	}

	path, err := storePath(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	log.Infof("persistent cache at %s", path)
	return s, nil
}

func storePath(path string) (string, error) {
	switch {
	case path == "":
		stateDir, err := getXDGStateHome(appName)
		if err != nil {
			return "", err
		}
		return filepath.Join(stateDir, "cache.db"), nil
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

func getXDGStateHome(appName string) (string, error) {
	xdgStateHome := os.Getenv("XDG_STATE_HOME")
	if xdgStateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		xdgStateHome = filepath.Join(homeDir, ".local", "state")
	}

	appStateDir := filepath.Join(xdgStateHome, appName)
	if err := os.MkdirAll(appStateDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}

	return appStateDir, nil
}
