package eventprocessor

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

// CameraConfig is one camera's HLS endpoint, as reachable from the event
// processor.
type CameraConfig struct {
	URL string `toml:"url"`
}

// Config is the event processor's full configuration, loaded from a single
// TOML file and hot-reloadable via Watch.
type Config struct {
	ListenAddr       string                            `toml:"listen_addr"`
	StateFilePath    string                            `toml:"state_file_path"`
	ArchiverURL      string                            `toml:"archiver_url"`
	ArchiveStoreURL  string                            `toml:"archive_store_url"`
	Encryption       encryption.Config                 `toml:"encryption"`
	EventTTL         common.Seconds                    `toml:"event_ttl"`
	ProcessInterval  common.Seconds                    `toml:"process_interval"`
	RetryQueueTTL    common.Seconds                    `toml:"retry_queue_ttl"`
	RetryWorkers     int                               `toml:"retry_workers"`
	Cameras          map[string]CameraConfig           `toml:"cameras"`
	TriggerTemplates map[string]common.TriggerTemplate `toml:"trigger_templates"`

	mu       sync.RWMutex    `toml:"-"`
	path     string          `toml:"-"`
	watchers []func(*Config) `toml:"-"`
}

// Load reads and parses a TOML config file, applying defaults for any
// field the file leaves zero.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eventprocessor: reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("eventprocessor: parsing config %s: %w", path, err)
	}

	cfg.path = path
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8081"
	}
	if c.StateFilePath == "" {
		c.StateFilePath = "events.json"
	}
	if c.EventTTL == 0 {
		c.EventTTL = common.Seconds(24 * time.Hour)
	}
	if c.ProcessInterval == 0 {
		c.ProcessInterval = common.Seconds(5 * time.Second)
	}
	if c.RetryQueueTTL == 0 {
		c.RetryQueueTTL = common.Seconds(1 * time.Hour)
	}
	if c.RetryWorkers == 0 {
		c.RetryWorkers = 4
	}
}

// Watch begins watching the backing file for changes, invoking OnChange
// callbacks (after a short debounce) whenever it is rewritten.
func (c *Config) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("eventprocessor: starting config watcher: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					time.Sleep(100 * time.Millisecond)
					c.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watch error", "error", err)
			}
		}
	}()

	return watcher.Add(c.path)
}

// OnChange registers fn to be called (with the newly-reloaded config)
// whenever the backing file changes.
func (c *Config) OnChange(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

func (c *Config) reload() {
	newCfg, err := Load(c.path)
	if err != nil {
		slog.Error("failed to reload event processor config", "error", err)
		return
	}

	c.mu.Lock()
	c.ListenAddr = newCfg.ListenAddr
	c.StateFilePath = newCfg.StateFilePath
	c.ArchiverURL = newCfg.ArchiverURL
	c.ArchiveStoreURL = newCfg.ArchiveStoreURL
	c.Encryption = newCfg.Encryption
	c.EventTTL = newCfg.EventTTL
	c.ProcessInterval = newCfg.ProcessInterval
	c.RetryQueueTTL = newCfg.RetryQueueTTL
	c.RetryWorkers = newCfg.RetryWorkers
	c.Cameras = newCfg.Cameras
	c.TriggerTemplates = newCfg.TriggerTemplates
	watchers := c.watchers
	c.mu.Unlock()

	slog.Info("event processor configuration reloaded")
	for _, fn := range watchers {
		fn(c)
	}
}

// Template looks up the trigger template for id, returning the zero
// template if none is configured.
func (c *Config) Template(id string) common.TriggerTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TriggerTemplates[id]
}

// CameraURLs returns a name->URL map snapshot suitable for an HLSClient.
func (c *Config) CameraURLs() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.Cameras))
	for name, cam := range c.Cameras {
		out[name] = cam.URL
	}
	return out
}
