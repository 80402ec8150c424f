package source

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/flatten"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadControllerFromTestdata(t *testing.T) {
	spec, err := LoadController(os.DirFS("testdata"), "characters/player.controller.yaml")
	require.NoError(t, err)

	assert.Equal(t, controller.ID("characters/player"), spec.Identity())
	assert.Equal(t, "characters/player.controller.yaml", spec.Path())
	require.Equal(t, 3, spec.ParameterCount())

	name, typ := spec.Parameter(1)
	assert.Equal(t, "Jump", name)
	assert.Equal(t, flatten.SourceTrigger, typ)
	_, typ = spec.Parameter(2)
	assert.Equal(t, flatten.SourceBool, typ)

	require.Equal(t, 2, spec.LayerCount())
	layer, root := spec.Layer(0)
	assert.Equal(t, "Base", layer)
	assert.Equal(t, 2, root.StateCount())
	require.Equal(t, 1, root.MachineCount())
	state, unique := root.Machine(0).State(1)
	assert.Equal(t, "Block", state)
	assert.Equal(t, "Combat.Guard", unique)
}

func TestLoadedControllerFlattens(t *testing.T) {
	spec, err := LoadController(os.DirFS("testdata"), "characters/player.controller.yaml")
	require.NoError(t, err)

	c, err := flatten.New().Flatten(spec)
	require.NoError(t, err)

	var got []string
	for s := range c.AllStates() {
		got = append(got, s.UniqueName)
	}
	assert.Equal(t, []string{"Base.Idle", "Base.Walk", "Combat.Attack", "Combat.Guard", "Upper.Wave"}, got)
}

func TestLoadControllerRejects(t *testing.T) {
	fsys := fstest.MapFS{
		"prefab.yaml":          {Data: []byte("kind: prefab\nname: player\ncomponents: {}\n")},
		"empty.controller":     {Data: []byte("")},
		"kindless.controller":  {Data: []byte("layers: []\n")},
		"broken.controller":    {Data: []byte("kind: controller\nlayers: [\n")},
		"null.controller.yaml": {Data: []byte("kind: controller\nlayers:\n  - name: Base\n    state_machine:\n      name: Base\n      state_machines:\n        - ~\n")},
		"badtype.controller":   {Data: []byte("kind: controller\nparameters:\n  - name: Aim\n    type: quaternion\n")},
	}

	cases := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"not_a_controller", "prefab.yaml", ErrNotController},
		{"empty_file", "empty.controller", ErrInvalidAsset},
		{"missing_kind", "kindless.controller", ErrInvalidAsset},
		{"null_sub_machine", "null.controller.yaml", ErrInvalidAsset},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := LoadController(fsys, c.file)
			require.ErrorIs(t, err, c.wantErr)
		})
	}

	_, err := LoadController(fsys, "broken.controller")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: unmarshal broken.controller")

	_, err = LoadController(fsys, "badtype.controller")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quaternion")

	_, err = LoadController(fsys, "missing.controller")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: load missing.controller")
}

func TestUnknownNumericTagReachesFlattener(t *testing.T) {
	fsys := fstest.MapFS{
		"odd.controller": {Data: []byte("kind: controller\nparameters:\n  - name: Aim\n    type: 7\n")},
	}
	spec, err := LoadController(fsys, "odd.controller")
	require.NoError(t, err)

	_, err = flatten.New().Flatten(spec)
	require.ErrorIs(t, err, flatten.ErrUnknownParameterType)
	assert.Contains(t, err.Error(), `odd.controller: parameter "Aim"`)
}

func TestDefaultID(t *testing.T) {
	cases := map[string]string{
		"player.controller":             "player",
		"a/b/enemy.controller.yaml":     "a/b/enemy",
		"a/b/Boss.Controller.YML":       "a/b/Boss",
		`win\path\npc.controller`:       "win/path/npc",
		"./misc/../other.controller":    "other",
		"not-a-controller.json":         "not-a-controller.json",
		"layered/thing.controller.yaml": "layered/thing",
	}
	for in, want := range cases {
		assert.Equal(t, want, DefaultID(in), in)
	}
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"b.controller":                 {},
		"a/Player.CONTROLLER":          {},
		"a/deep/enemy.controller.yaml": {},
		"a/readme.md":                  {},
		".git/objects/x.controller":    {},
		"levels/level_1.json":          {},
	}

	got, err := Discover(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Player.CONTROLLER", "a/deep/enemy.controller.yaml", "b.controller"}, got)

	got, err = Discover(fsys, "a/**/*.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/deep/enemy.controller.yaml"}, got)

	got, err = Discover(fsys, "A/**/*.Controller")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Player.CONTROLLER"}, got)

	_, err = Discover(fsys, "a/[")
	require.Error(t, err)
}

func TestWatcherReportsControllerChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	target := filepath.Join(dir, "player.controller")
	require.NoError(t, os.WriteFile(target, []byte("kind: controller\n"), 0o644))

	select {
	case name := <-w.Events:
		assert.Equal(t, target, name)
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for controller asset")
	}
}

func TestWatcherWaitsForSaveToSettle(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "player.controller")
	require.NoError(t, os.WriteFile(target, []byte("kind: controller\n"), 0o644))

	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Close()

	// Truncate then write, the way editors save in place.
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("kind: controller\nid: player\n"), 0o644))

	select {
	case name := <-w.Events:
		assert.Equal(t, target, name)
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.Contains(t, string(data), "id: player")
	case <-time.After(5 * time.Second):
		t.Fatal("no event for controller asset")
	}

	select {
	case name := <-w.Events:
		t.Fatalf("unexpected second event for %s", name)
	case <-time.After(3 * DefaultSettle):
	}
}
