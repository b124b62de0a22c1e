package script

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/demon/internal/config"
)

// Ext is the file extension of Lua scripts.
const Ext = ".lua"

// LoadDir returns a script for every *.lua file directly inside dir, in
// name order. A missing directory yields no scripts.
func LoadDir(dir string, opts ...LuaOption) ([]*LuaScript, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading script dir %s: %w", dir, err)
	}

	var scripts []*LuaScript
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			continue
		}
		scripts = append(scripts, NewLuaFile(filepath.Join(dir, e.Name()), opts...))
	}
	return scripts, nil
}

// Load returns the scripts named by cfg. Listed files are resolved
// against cfg.Dir and must exist. With no files listed, every script in
// cfg.Dir is loaded.
func Load(cfg config.ScriptsConfig, opts ...LuaOption) ([]*LuaScript, error) {
	if len(cfg.Files) == 0 {
		if cfg.Dir == "" {
			return nil, nil
		}
		return LoadDir(cfg.Dir, opts...)
	}

	scripts := make([]*LuaScript, 0, len(cfg.Files))
	for _, name := range cfg.Files {
		path := name
		if !filepath.IsAbs(path) && cfg.Dir != "" {
			path = filepath.Join(cfg.Dir, name)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("script %s: %w", name, err)
		}
		scripts = append(scripts, NewLuaFile(path, opts...))
	}
	return scripts, nil
}
