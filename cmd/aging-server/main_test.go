package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CrewAging/server/internal/codec"
	"github.com/MRamiBalles/CrewAging/server/internal/domain/crew"
	"github.com/MRamiBalles/CrewAging/server/internal/infra/storage"
	"github.com/MRamiBalles/CrewAging/server/internal/savetree"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedSlot(t *testing.T, dsn, slot string) {
	t.Helper()
	db, err := storage.InitSQLite(dsn)
	require.NoError(t, err)
	defer db.Close()

	tree := savetree.New(sceneRoot)
	codec.Save(tree, codec.State{
		Records: []crew.Record{
			{Name: "Jeb", CurrentAge: 40, DeathAge: 310, Alive: true, Birthday: 12, YearAdded: 1, BirthYear: -39},
			{Name: "Bill", CurrentAge: 52, DeathAge: 52, Birthday: 200, YearAdded: 3, BirthYear: -49, Death: crew.UnknownDeath()},
		},
		Ranges: crew.DefaultRanges(),
	})
	require.NoError(t, storage.NewSQLiteSaveRepository(db).SaveTree(context.Background(), slot, 5000, tree))
}

func TestInspectPrintsLedger(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "aging.db")
	seedSlot(t, dsn, "career")

	out, err := run(t, "", "inspect", "--env-file", "", "--db-dsn", dsn, "--slot", "career", "--sort", "az")
	require.NoError(t, err)

	assert.Contains(t, out, "1 alive, 1 dead")
	assert.Contains(t, out, "A to Z")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "Bill"))
	assert.Contains(t, lines[2], "UNKNOWN")
	assert.True(t, strings.HasPrefix(lines[3], "Jeb"))
}

func TestInspectMissingSlot(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "aging.db")
	_, err := run(t, "", "inspect", "--env-file", "", "--db-dsn", dsn, "--slot", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "aging.db")
	seedSlot(t, dsn, "career")

	file := filepath.Join(dir, "career.yaml")
	_, err := run(t, "", "export", file, "--env-file", "", "--db-dsn", dsn, "--slot", "career")
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AGE_DATA")

	out, err := run(t, string(data), "import", "--env-file", "", "--db-dsn", dsn, "--slot", "copy", "--ut", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 records into slot copy")

	out, err = run(t, "", "inspect", "--env-file", "", "--db-dsn", dsn, "--slot", "copy", "--state", "alive")
	require.NoError(t, err)
	assert.Contains(t, out, "Jeb")
	assert.NotContains(t, out, "Bill")
}

func TestImportRejectsForeignTree(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "aging.db")
	_, err := run(t, "name: SCENARIO\n", "import", "--env-file", "", "--db-dsn", dsn)
	assert.ErrorContains(t, err, "no AGE_DATA node")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CREWAGING_SAVE_SLOT", "from-env")
	t.Setenv("CREWAGING_LOG_LEVEL", "warn")

	serveCmd, _, err := newRootCmd().Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serveCmd.ParseFlags([]string{"--env-file", "", "--slot", "from-flag", "--addr", ":9999", "--seed", "7"}))

	cfg, err := loadConfig(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.SaveSlot)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, "warn", cfg.LogLevel)
}
