// Package config provides configuration management for the flash manager.
// It reads settings from flashmgr.ini using multiple search paths via
// gopkg.in/ini.v1, merges them into a viper instance so environment
// variables and CLI flags can override file values, and uses fsnotify to
// live-reload the probe connection settings when the file changes on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Config holds all configuration settings for the flash manager.
type Config struct {
	// Probe connection settings
	Port     string
	DataRate int
	Timeout  int

	// Flash geometry, overridden per-target via SetTarget
	FlashPageSize   int
	FlashSectorSize int
	RAMSize         int
	ErasedByte      byte

	// File paths the CLI resolves algorithm/memory-map descriptors from
	AlgorithmFile string
	MemoryMapFile string

	v          *viper.Viper
	configPath string
	watcher    *fsnotify.Watcher
	mu         sync.RWMutex
}

// Load reads configuration from flashmgr.ini in the following search order:
//  1. Current directory (./flashmgr.ini)
//  2. $FLASHMGR directory ($FLASHMGR/flashmgr.ini)
//  3. Home directory (~/flashmgr.ini)
//
// FLASHMGR_-prefixed environment variables override file values, and the
// loaded file is watched so edits to it take effect without restarting.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLASHMGR")
	v.AutomaticEnv()

	v.SetDefault("port", "")
	v.SetDefault("data_rate", 6_000_000)
	v.SetDefault("timeout", 60)
	v.SetDefault("flash_page_size", 256)
	v.SetDefault("flash_sector_size", 4096)
	v.SetDefault("ram_size", 8192)
	v.SetDefault("erased_byte", 0xFF)
	v.SetDefault("algorithm", "")
	v.SetDefault("memory_map", "")

	cfg := &Config{v: v}

	path, err := ConfigPath()
	if err == nil {
		if mergeErr := cfg.mergeIniFile(path); mergeErr != nil {
			return nil, mergeErr
		}
		cfg.configPath = path
	}

	cfg.refresh()
	if cfg.configPath != "" {
		cfg.watch()
	}

	return cfg, nil
}

// mergeIniFile reads path with ini.v1 and merges its DEFAULT section into
// the viper instance: its values override defaults, and env vars still
// override its values.
func (c *Config) mergeIniFile(path string) error {
	iniFile, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	section := iniFile.Section("DEFAULT")
	values := map[string]interface{}{}
	for _, key := range section.Keys() {
		values[key.Name()] = key.Value()
	}
	return c.v.MergeConfigMap(values)
}

// watch starts an fsnotify watcher on the loaded config file's directory,
// re-merging and re-snapshotting on every write or create event so the probe
// connection settings can change without restarting the process.
func (c *Config) watch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	dir := filepath.Dir(c.configPath)
	if err := w.Add(dir); err != nil {
		w.Close()
		return
	}
	c.watcher = w

	go func() {
		for event := range w.Events {
			if filepath.Clean(event.Name) != filepath.Clean(c.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := c.mergeIniFile(c.configPath); err != nil {
				continue
			}
			c.refresh()
		}
	}()
}

// refresh snapshots the current viper-merged values into the struct fields
// under lock, so readers never observe a torn update mid-reload.
func (c *Config) refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Port = c.v.GetString("port")
	c.DataRate = c.v.GetInt("data_rate")
	c.Timeout = c.v.GetInt("timeout")
	c.FlashPageSize = c.v.GetInt("flash_page_size")
	c.FlashSectorSize = c.v.GetInt("flash_sector_size")
	c.RAMSize = c.v.GetInt("ram_size")
	c.ErasedByte = byte(c.v.GetInt("erased_byte"))
	c.AlgorithmFile = c.v.GetString("algorithm")
	c.MemoryMapFile = c.v.GetString("memory_map")
}

// SetTarget configures known-target flash geometry by name; unrecognized
// names leave the file/env-derived geometry untouched.
func (c *Config) SetTarget(targetName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch strings.ToLower(targetName) {
	case "stm32f4":
		c.FlashPageSize = 256
		c.FlashSectorSize = 16 * 1024
		c.RAMSize = 128 * 1024
	case "stm32f1":
		c.FlashPageSize = 128
		c.FlashSectorSize = 1024
		c.RAMSize = 20 * 1024
	}
}

// Close stops the background file watcher, if one was started.
func (c *Config) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

// LoadedFrom returns the path to the config file that was loaded, or "" if
// none was found.
func (c *Config) LoadedFrom() string {
	return c.configPath
}

// ConfigPath searches the same paths Load does and returns the first one
// that exists, without loading it.
func ConfigPath() (string, error) {
	paths := []string{filepath.Join(".", "flashmgr.ini")}
	if dir := os.Getenv("FLASHMGR"); dir != "" {
		paths = append(paths, filepath.Join(dir, "flashmgr.ini"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "flashmgr.ini"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config: no flashmgr.ini file found in current directory, $FLASHMGR, or home directory")
}
