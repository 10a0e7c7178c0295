// ABOUTME: Charm KV client wrapper using transactional Do API
// ABOUTME: Short-lived connections to avoid lock contention with other processes

package charm

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	charmproto "github.com/charmbracelet/charm/proto"
	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/config"
	"github.com/harper/eureka/internal/feed"
)

const (
	// DBName is the name of the charm kv database for eureka.
	DBName = "eureka"
)

// Client holds configuration for KV operations. It does not hold a
// persistent connection: each operation opens the database, performs the
// operation, and closes it.
type Client struct {
	dbName         string
	autoSync       bool
	staleThreshold time.Duration
	pollInterval   time.Duration
	logger         *log.Logger
	hub            *feed.Hub
}

// Option configures a Client.
type Option func(*Client)

// WithDBName sets the database name.
func WithDBName(name string) Option {
	return func(c *Client) {
		c.dbName = name
	}
}

// WithAutoSync enables or disables auto-sync after writes.
func WithAutoSync(enabled bool) Option {
	return func(c *Client) {
		c.autoSync = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new client from cfg with the given options.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg.CharmHost != "" {
		if err := os.Setenv("CHARM_HOST", cfg.CharmHost); err != nil {
			return nil, err
		}
	}

	c := &Client{
		dbName:         DBName,
		autoSync:       cfg.AutoSync,
		staleThreshold: cfg.StaleThreshold.Std(),
		pollInterval:   cfg.PollInterval.Std(),
		logger:         log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hub = feed.NewHub(feed.WithInterval(c.pollInterval), feed.WithLogger(c.logger))
	return c, nil
}

// do executes fn with write access and syncs afterwards when auto-sync is on.
func (c *Client) do(fn func(k *kv.KV) error) error {
	return kv.Do(c.dbName, func(k *kv.KV) error {
		if err := fn(k); err != nil {
			return err
		}
		if c.autoSync {
			return k.Sync()
		}
		return nil
	})
}

// doReadOnly executes fn with read-only access, pulling first if stale.
func (c *Client) doReadOnly(fn func(k *kv.KV) error) error {
	if err := c.SyncIfStale(); err != nil {
		return err
	}
	return kv.DoReadOnly(c.dbName, fn)
}

// Sync triggers a manual sync with the charm server.
func (c *Client) Sync() error {
	return kv.Do(c.dbName, func(k *kv.KV) error {
		return k.Sync()
	})
}

// LastSyncTime returns the timestamp of the last sync operation.
func (c *Client) LastSyncTime() time.Time {
	var lastSync time.Time
	_ = kv.DoReadOnly(c.dbName, func(k *kv.KV) error {
		lastSync = k.LastSyncTime()
		return nil
	})
	return lastSync
}

// IsStale checks if the data is stale based on the configured threshold.
func (c *Client) IsStale() bool {
	if c.staleThreshold == 0 {
		return false
	}
	var isStale bool
	_ = kv.DoReadOnly(c.dbName, func(k *kv.KV) error {
		isStale = k.IsStale(c.staleThreshold)
		return nil
	})
	return isStale
}

// SyncIfStale syncs with the charm server if data is stale.
func (c *Client) SyncIfStale() error {
	if !c.IsStale() {
		return nil
	}
	c.logger.Debug("data stale, syncing", "threshold", c.staleThreshold)
	return c.Sync()
}

// Reset clears all local data (nuclear option).
func (c *Client) Reset() error {
	return kv.Do(c.dbName, func(k *kv.KV) error {
		return k.Reset()
	})
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", err
	}
	return cc.ID()
}

// User returns the current charm user information.
func (c *Client) User() (*charmproto.User, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return nil, err
	}
	return cc.Bio()
}

// Link initiates the charm linking process for this device.
func (c *Client) Link() error {
	_, err := c.User()
	return err
}

// Unlink removes the charm account association from this device.
func (c *Client) Unlink() error {
	return c.Reset()
}

// Close releases nothing; connections close after every operation.
func (c *Client) Close() error {
	return nil
}
