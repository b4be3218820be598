package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/pkg/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs([]string{})
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "apiserver.yaml")
	content := "database:\n" +
		"  type: sqlite\n" +
		"  dbname: " + filepath.Join(dir, "crm.db") + "\n" +
		"jwt:\n" +
		"  secret_key: ${CRM_TEST_JWT_SECRET:0123456789abcdef0123456789abcdef}\n" +
		"logger:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Get())
	assert.Contains(t, out, "apiserver version")
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "create-master-company")
	assert.Contains(t, out, "list-companies")
}

func TestCreateMasterCompany(t *testing.T) {
	conf := writeConfig(t)

	out, err := execute(t, "--conf", conf, "create-master-company",
		"--name", "Acme HQ", "--username", "root", "--password", "root-password", "--email", "ops@acme.test")
	require.NoError(t, err)
	assert.Contains(t, out, `Master company "Acme HQ" created`)
	assert.Contains(t, out, "slug acme-hq")
	assert.Contains(t, out, `Administrator "root" created`)

	out, err = execute(t, "--conf", conf, "list-companies")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "acme-hq")
	assert.Contains(t, out, "master")

	_, err = execute(t, "--conf", conf, "create-master-company",
		"--name", "Other HQ", "--username", "other", "--password", "other-password", "--email", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type")
}

func TestListCompanies_Empty(t *testing.T) {
	conf := writeConfig(t)
	out, err := execute(t, "--conf", conf, "list-companies")
	require.NoError(t, err)
	assert.Contains(t, out, "No companies found")
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secret_key: short\n"), 0o600))

	_, err := execute(t, "--conf", path, "list-companies")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret_key")
}
