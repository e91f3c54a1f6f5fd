package database

import (
	"fmt"
	"path/filepath"
)

// Config is the YAML section shared by the SQL-backed modules.
//
//	modules:
//	  memory.sqlite:
//	    path: /var/lib/ragchat/history.db   # or
//	    url: libsql://chat.turso.io?authToken=...
type Config struct {
	// Path is the local database file. Defaults to a file under the data dir.
	Path string `yaml:"path"`

	// URL selects a remote libSQL/Turso database instead of a local file.
	URL string `yaml:"url"`

	// WAL toggles write-ahead logging on local files. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout in milliseconds. Zero means DefaultBusyTimeout.
	BusyTimeout int `yaml:"busy_timeout"`
}

// Options resolves c into open options. file names the default database
// file under dataDir when neither Path nor URL is set.
func (c Config) Options(dataDir, file string) Options {
	opts := Options{
		Path:        c.Path,
		URL:         c.URL,
		WAL:         c.WAL == nil || *c.WAL,
		BusyTimeout: c.BusyTimeout,
	}
	if opts.URL == "" && opts.Path == "" {
		opts.Path = filepath.Join(dataDir, file)
	}
	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	return opts
}

// Validate checks the section. module prefixes the error messages.
func (c Config) Validate(module string) error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%s: busy_timeout must be non-negative, got %d", module, c.BusyTimeout)
	}
	if c.URL != "" && !IsRemoteURL(c.URL) {
		return fmt.Errorf("%s: url must use libsql://, https:// or wss://", module)
	}
	return nil
}

// LogAttrs describes opts for a startup log line without the auth token.
func (o Options) LogAttrs() []any {
	if o.URL != "" {
		return []any{"backend", "libsql", "url", redactURL(o.URL)}
	}
	return []any{"backend", "sqlite", "path", o.Path, "wal", o.WAL}
}
