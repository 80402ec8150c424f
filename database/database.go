// Package database persists baked controllers as a single file that runtime
// code loads into a lookup table.
package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/table"
	"gopkg.in/yaml.v3"
)

// Version is the layout version written by Save.
const Version = 1

var ErrUnsupportedVersion = errors.New("database: unsupported version")

type Database struct {
	Version     int                     `yaml:"version" json:"version"`
	Hash        string                  `yaml:"hash" json:"hash"`
	Controllers []controller.Controller `yaml:"controllers" json:"controllers"`
}

type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor picks the format from the file extension. Anything other than
// .json is YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// HashFunc returns the name hash the database was baked with.
func (db Database) HashFunc() (controller.HashFunc, error) {
	return controller.HashByName(db.Hash)
}

// Table returns an unbuilt lookup table over the database's controllers.
func (db Database) Table(opts ...table.Option) *table.Table {
	return table.New(db.Controllers, opts...)
}

func Encode(w io.Writer, db Database, f Format) error {
	if f == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(db)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(db); err != nil {
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader, f Format) (Database, error) {
	var db Database
	var err error
	if f == FormatJSON {
		err = json.NewDecoder(r).Decode(&db)
	} else {
		err = yaml.NewDecoder(r).Decode(&db)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return Database{}, err
	}
	if db.Version != Version {
		return Database{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, db.Version)
	}
	if _, err := db.HashFunc(); err != nil {
		return Database{}, err
	}
	return db, nil
}

// Save writes db to path unless the file already holds the same bytes. It
// reports whether the file was written.
func Save(path string, db Database) (bool, error) {
	if db.Version == 0 {
		db.Version = Version
	}
	var buf bytes.Buffer
	if err := Encode(&buf, db, FormatFor(path)); err != nil {
		return false, fmt.Errorf("database: encode %s: %w", path, err)
	}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, buf.Bytes()) {
		return false, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("database: save %s: %w", path, err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("database: save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return false, fmt.Errorf("database: save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("database: save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("database: save %s: %w", path, err)
	}
	return true, nil
}

func Load(path string) (Database, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return LoadFS(os.DirFS(dir), name)
}

// LoadFS reads a database from fsys, typically an embedded file system
// shipped with the game.
func LoadFS(fsys fs.FS, name string) (Database, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return Database{}, fmt.Errorf("database: load %s: %w", name, err)
	}
	defer f.Close()

	db, err := Decode(f, FormatFor(name))
	if err != nil {
		return Database{}, fmt.Errorf("database: decode %s: %w", name, err)
	}
	return db, nil
}
