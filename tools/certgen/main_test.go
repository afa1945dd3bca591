package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/sessiongate/internal/certgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CreatesAndReusesCA(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-dir", dir, "-hosts", "auth.local, 10.0.0.5"}, &out))
	assert.Contains(t, out.String(), "created CA")

	for _, name := range []string{"ca.crt", "ca.key", "server.crt", "server.key"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	first, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, run([]string{"-dir", dir}, &out))
	assert.Contains(t, out.String(), "reusing CA")

	second, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ca, err := certgen.LoadCA(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	assert.Equal(t, "sessiongate dev CA", ca.Cert.Subject.CommonName)
}

func TestRun_Errors(t *testing.T) {
	assert.Error(t, run([]string{"-bogus"}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"-dir", t.TempDir(), "-hosts", " , "}, &bytes.Buffer{}))
}

func TestSplitHosts(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitHosts(" a,,b ,"))
	assert.Nil(t, splitHosts(""))
}
