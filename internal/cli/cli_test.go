package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/repository/sqlite"
)

// isolate keeps config discovery away from the developer's machine
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ANCHORWATCH_CONFIG", "")
	t.Setenv("ANCHORWATCH_DATABASE_URL", "")
	t.Setenv("ANCHORWATCH_DB_DRIVER", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func seedDB(t *testing.T, detections []domain.Detection, whitelist ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anchorwatch.db")
	repo, err := sqlite.New(path)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	for i := range detections {
		require.NoError(t, repo.InsertDetection(ctx, &detections[i]))
	}
	for _, mac := range whitelist {
		require.NoError(t, repo.InsertWhitelist(ctx, &domain.WhitelistEntry{MAC: mac}))
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "anchorctl", cmd.Use)

	for _, path := range [][]string{{"whitelist", "add"}, {"whitelist", "list"}, {"detections"}, {"check-mac"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--format", "xml", "whitelist", "list", "--db", seedDB(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestWhitelistAddAndList(t *testing.T) {
	isolate(t)
	db := seedDB(t, nil)

	stdout, _, err := execute(t, "whitelist", "add", "AA:BB:CC:DD:EE:FF", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "aa:bb:cc:dd:ee:ff")

	_, stderr, err := execute(t, "whitelist", "add", "aa:bb:cc:dd:ee:ff", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, domain.ErrDuplicateMAC.Error())

	_, _, err = execute(t, "whitelist", "add", "nope", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	stdout, _, err = execute(t, "--format", "json", "whitelist", "list", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string                  `json:"status"`
		Data   []domain.WhitelistEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", resp.Data[0].MAC)
}

func TestCheckMAC(t *testing.T) {
	isolate(t)
	db := seedDB(t, nil, "aa:bb:cc:dd:ee:ff")

	stdout, _, err := execute(t, "check-mac", " AA:BB:CC:DD:EE:FF ", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is whitelisted")

	stdout, _, err = execute(t, "--format", "json", "check-mac", "11:22:33:44:55:66", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.Data.Whitelisted)
	assert.Equal(t, "11:22:33:44:55:66", resp.Data.MAC)

	_, stderr, err := execute(t, "check-mac", "zz:zz", "--db", db)
	require.Error(t, err)
	assert.Contains(t, stderr, domain.ErrInvalidMAC.Error())
}

func TestDetections(t *testing.T) {
	isolate(t)
	db := seedDB(t, []domain.Detection{
		{AnchorID: "Anchor_1", MAC: "aa:bb:cc:dd:ee:01", RSSI: -60, Block: 4},
		{AnchorID: "Anchor_2", MAC: "aa:bb:cc:dd:ee:01", RSSI: -48, Block: 2},
		{AnchorID: "Anchor_2", MAC: "aa:bb:cc:dd:ee:02", RSSI: -75, Block: 8},
		{AnchorID: "Anchor_3", MAC: "AA:BB:CC:DD:EE:FF", RSSI: -40, Block: 3},
	}, "aa:bb:cc:dd:ee:ff")

	stdout, _, err := execute(t, "--format", "json", "detections", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Current  []domain.Detection `json:"current"`
			RawCount int                `json:"raw_count"`
			Excluded int                `json:"excluded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 4, resp.Data.RawCount)
	assert.Equal(t, 1, resp.Data.Excluded)
	assert.Len(t, resp.Data.Current, 2)

	stdout, _, err = execute(t, "detections", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "aa:bb:cc:dd:ee:02")
	assert.NotContains(t, stdout, "aa:bb:cc:dd:ee:ff")
	assert.Contains(t, stdout, "Total: 2 devices")
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "open store", assert.AnError)))
	assert.Equal(t, "open store: "+assert.AnError.Error(), WrapExitError(ExitCommandError, "open store", assert.AnError).Error())
}
