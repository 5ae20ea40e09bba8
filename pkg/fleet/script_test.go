package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup-worker.sh")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestScriptRenderSubstitutesPlaceholders(t *testing.T) {
	path := writeScript(t, `#!/bin/sh
# prepare the host
apt-get update

docker swarm join --token {{WORKER_TOKEN}} {{MANAGER_ADDR}}
`)

	commands, err := newScriptSource(path).render("10.0.0.1:2377", "SWMTKN-1-abc")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"apt-get update",
		"docker swarm join --token SWMTKN-1-abc 10.0.0.1:2377",
	}, commands)
}

func TestScriptRenderAppendsJoinWhenMissing(t *testing.T) {
	path := writeScript(t, "apt-get install -y docker.io\n")

	commands, err := newScriptSource(path).render("10.0.0.1:2377", "SWMTKN-1-abc")
	require.NoError(t, err)

	require.Len(t, commands, 2)
	assert.Equal(t, "docker swarm join --token SWMTKN-1-abc 10.0.0.1:2377", commands[1])
}

func TestScriptRenderMissingFile(t *testing.T) {
	src := newScriptSource(filepath.Join(t.TempDir(), "nope.sh"))
	_, err := src.render("10.0.0.1:2377", "tok")
	assert.Error(t, err)
}

func TestScriptRenderEmptyFile(t *testing.T) {
	path := writeScript(t, "# only comments\n\n")
	_, err := newScriptSource(path).render("10.0.0.1:2377", "tok")
	assert.Error(t, err)
}

func TestScriptLoadedOnce(t *testing.T) {
	path := writeScript(t, "uname -a\n")
	src := newScriptSource(path)

	first, err := src.render("10.0.0.1:2377", "tok")
	require.NoError(t, err)

	// The file is read once; later edits do not affect renders
	require.NoError(t, os.WriteFile(path, []byte("reboot\n"), 0o600))
	second, err := src.render("10.0.0.1:2377", "tok")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
