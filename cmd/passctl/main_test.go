package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass/pkpasstest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func Test_GenCert(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "gen-cert", "--pass-type-id", "pass.com.example.demo", "--dir", dir, "--passphrase", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "pass.com.example.demo"+crypto.CertExt)

	creds, err := (&crypto.FileStore{Dir: dir, Passphrase: "pw"}).Load("pass.com.example.demo")
	require.NoError(t, err)
	assert.Equal(t, "Pass Type ID: pass.com.example.demo", creds.Certificate.Subject.CommonName)

	_, err = run(t, "gen-cert", "--dir", dir)
	assert.Error(t, err)
}

func Test_Hash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.zip")
	require.NoError(t, os.WriteFile(path, pkpasstest.Template(t, "pass.com.example.demo", "001"), 0o600))

	first, err := run(t, "hash", path)
	require.NoError(t, err)
	assert.Regexp(t, `^pass\.com\.example\.demo/001 [0-9a-f]{40}\n$`, first)

	again, err := run(t, "hash", path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other, err := run(t, "hash", "--token", "ffffffffffffffffffffffffffffffff", path)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	_, err = run(t, "hash", filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}
