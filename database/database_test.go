package database

import (
	"bytes"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/milk9111/animdb/controller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Database {
	idle := controller.State{Name: "Idle", UniqueName: "Base.Idle", UniqueNameHash: controller.XXH3("Base.Idle")}
	attack := controller.State{Name: "Attack", UniqueName: "Combat.Attack", UniqueNameHash: controller.XXH3("Combat.Attack")}
	return Database{
		Version: Version,
		Hash:    controller.HashXXH3,
		Controllers: []controller.Controller{{
			ID: "player",
			Parameters: []controller.Parameter{
				{Name: "Speed", Type: controller.ParameterFloat},
				{Name: "Jump", Type: controller.ParameterTrigger},
			},
			Layers: []controller.Layer{{
				Name: "Base",
				Hash: controller.XXH3("Base"),
				StateMachine: controller.StateMachine{
					Name:   "Base",
					Hash:   controller.XXH3("Base"),
					States: []controller.State{idle},
					SubStateMachines: []controller.StateMachine{{
						Name:             "Combat",
						Hash:             controller.XXH3("Combat"),
						States:           []controller.State{attack},
						SubStateMachines: []controller.StateMachine{},
					}},
				},
			}},
		}},
	}
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"controllers.db.yaml", "controllers.db.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)

			written, err := Save(path, sample())
			require.NoError(t, err)
			assert.True(t, written)

			db, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, sample(), db)

			written, err = Save(path, sample())
			require.NoError(t, err)
			assert.False(t, written, "unchanged database should not be rewritten")
		})
	}
}

func TestEncodedLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sample(), FormatYAML))
	out := buf.String()

	for _, want := range []string{"version: 1", "hash: xxh3", "controller: player", "type: trigger", "unique_name: Combat.Attack", "sub_state_machines:"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "parameters:"), strings.Index(out, "layers:"))
}

func TestDatabaseTable(t *testing.T) {
	tbl := sample().Table()
	states, err := tbl.GetStates("player")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "Attack", states[1].Name)
}

func TestDecodeRejects(t *testing.T) {
	fsys := fstest.MapFS{
		"old.yaml":     {Data: []byte("version: 0\nhash: xxh3\ncontrollers: []\n")},
		"hash.json":    {Data: []byte(`{"version": 1, "hash": "md5", "controllers": []}`)},
		"badtype.yaml": {Data: []byte("version: 1\ncontrollers:\n  - controller: a\n    parameters:\n      - name: X\n        type: quaternion\n")},
	}

	_, err := LoadFS(fsys, "old.yaml")
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = LoadFS(fsys, "hash.json")
	require.ErrorIs(t, err, controller.ErrUnknownHash)

	_, err = LoadFS(fsys, "badtype.yaml")
	require.Error(t, err)

	_, err = LoadFS(fsys, "missing.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("a/b.JSON"))
	assert.Equal(t, FormatYAML, FormatFor("a/b.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("a/b.db"))
}
