package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playerAsset = `kind: controller
id: player
parameters:
  - name: Speed
    type: float
  - name: Jump
    type: trigger
layers:
  - name: Base
    state_machine:
      name: Base
      states:
        - name: Idle
        - name: Walk
      state_machines:
        - name: Combat
          states:
            - name: Attack
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func bakedProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "player.controller.yaml"), []byte(playerAsset), 0o644))

	db := filepath.Join(dir, "controllers.db.yaml")
	out, err := execute(t, "bake", "--source", src, "--output", db)
	require.NoError(t, err)
	assert.Contains(t, out, "1 controllers (written)")
	return db
}

func TestBakeAndQuery(t *testing.T) {
	db := bakedProject(t)

	cases := []struct {
		name string
		args []string
		want []string
	}{
		{"list", []string{"list"}, []string{"player"}},
		{"count", []string{"count", "player"}, []string{"1"}},
		{"states", []string{"states", "player"}, []string{"Idle", "Walk", "Attack"}},
		{"parameters", []string{"parameters", "player"}, []string{"Speed", "float", "Jump", "trigger"}},
		{"layers", []string{"layers", "player"}, []string{"Base (", "[Combat]", "Attack"}},
		{"states_json", []string{"states", "player", "--json"}, []string{`"unique_name": "Combat.Attack"`}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := execute(t, append(c.args, "--db", db)...)
			require.NoError(t, err)
			last := -1
			for _, want := range c.want {
				idx := strings.Index(out, want)
				require.GreaterOrEqual(t, idx, 0, "missing %q in %q", want, out)
				assert.Greater(t, idx, last, "%q out of order in %q", want, out)
				last = idx
			}
		})
	}
}

func TestQueryUnknownController(t *testing.T) {
	db := bakedProject(t)
	_, err := execute(t, "states", "ghost", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller not found")
}

func TestBakeRerunIsUnchanged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "player.controller"), []byte(playerAsset), 0o644))
	db := filepath.Join(dir, "out.json")

	_, err := execute(t, "bake", "--source", dir, "--output", db)
	require.NoError(t, err)
	out, err := execute(t, "bake", "--source", dir, "--output", db)
	require.NoError(t, err)
	assert.Contains(t, out, "(unchanged)")
}

func TestHash(t *testing.T) {
	out, err := execute(t, "hash", "--hash", "crc32", "123456789")
	require.NoError(t, err)
	assert.Equal(t, "-873187034\t123456789\n", out)
}

func TestRunScript(t *testing.T) {
	db := bakedProject(t)
	scriptPath := filepath.Join(t.TempDir(), "check.tengo")
	src := `
animdb := import("animdb")
fmt := import("fmt")
for s in animdb.states(id) {
	fmt.println(s.unique_name)
}
`
	require.NoError(t, os.WriteFile(scriptPath, []byte(src), 0o644))

	_, err := execute(t, "run", scriptPath, "--id", "player", "--db", db)
	require.NoError(t, err)

	_, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.tengo"), "--db", db)
	require.Error(t, err)
}
