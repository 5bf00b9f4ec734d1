package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbi7py/snafu/internal/db"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	t.Setenv("SNAFU_ROOT", t.TempDir())
	conn, err := db.InitDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewRepository(conn)
}

func TestAddAndGetInstallation(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.AddInstallation("3.6", `C:\pythons\3.6`, []int{3, 6, 3}))

	inst, err := r.GetInstallation("3.6")
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, "3.6", inst.Name)
	assert.Equal(t, []int{3, 6, 3}, inst.VersionInfo)

	missing, err := r.GetInstallation("3.5")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddInstallationRejectsDuplicate(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.AddInstallation("3.6", `C:\pythons\3.6`, []int{3, 6, 3}))
	err := r.AddInstallation("3.6", `C:\elsewhere`, []int{3, 6, 3})
	assert.ErrorContains(t, err, "already installed")
}

func TestRemoveInstallationCascades(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.AddInstallation("3.6", `C:\pythons\3.6`, []int{3, 6, 3}))
	require.NoError(t, r.SetActiveNames([]string{"3.6"}))
	require.NoError(t, r.RecordLink("pip", "3.6", `C:\pythons\3.6\Scripts\pip.exe`))

	require.NoError(t, r.RemoveInstallation("3.6"))

	inst, err := r.GetInstallation("3.6")
	require.NoError(t, err)
	assert.Nil(t, inst)

	active, err := r.ActiveNames()
	require.NoError(t, err)
	assert.Empty(t, active)

	links, err := r.ListLinks()
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestActiveNamesOrdered(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.AddInstallation("3.6", "a", []int{3, 6, 3}))
	require.NoError(t, r.AddInstallation("3.5", "b", []int{3, 5, 4}))
	require.NoError(t, r.AddInstallation("2.7", "c", []int{2, 7, 14}))

	require.NoError(t, r.SetActiveNames([]string{"3.5", "3.6", "2.7"}))
	names, err := r.ActiveNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"3.5", "3.6", "2.7"}, names)

	require.NoError(t, r.RemoveFromActive("3.6"))
	names, err = r.ActiveNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"3.5", "2.7"}, names)
}

func TestSetActiveNamesRequiresInstallation(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.AddInstallation("3.6", "a", []int{3, 6, 3}))
	err := r.SetActiveNames([]string{"3.6", "3.5"})
	assert.ErrorContains(t, err, "not installed")

	// the failed replace must not clobber the previous set
	names, err := r.ActiveNames()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLinksUpsertAndRemoveForVersion(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.RecordLink("pip", "3.6", `a\pip.exe`))
	require.NoError(t, r.RecordLink("pip", "3.5", `b\pip.exe`))

	l, err := r.GetLink("pip")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "3.5", l.VersionName)

	require.NoError(t, r.RecordLink("virtualenv", "3.5", `b\virtualenv.exe`))
	removed, err := r.RemoveLinksForVersion("3.5")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pip", "virtualenv"}, removed)

	l, err = r.GetLink("pip")
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestSetUninstallerPath(t *testing.T) {
	r := setupRepo(t)
	require.NoError(t, r.AddInstallation("3.6", "a", []int{3, 6, 3}))
	require.NoError(t, r.SetUninstallerPath("3.6", `cache\python-3.6.3-amd64.exe`))
	inst, err := r.GetInstallation("3.6")
	require.NoError(t, err)
	require.True(t, inst.UninstallerPath.Valid)
	assert.Equal(t, `cache\python-3.6.3-amd64.exe`, inst.UninstallerPath.String)
}
