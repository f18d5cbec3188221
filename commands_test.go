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

func TestTotalCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	csv := "\uFEFF食品名,重量（g）,エネルギー（kcal）,たんぱく質（g）,脂質（g）,炭水化物（g）,食塩相当量（g）,材料の説明\n" +
		"ごはん,150,252,3.75,0.45,55.65,0,\n" +
		"みそ汁,200,60,4,2,6,1.5,具だくさん\n" +
		"合計,350,312,7.75,2.45,61.65,1.5,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"total", path})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, "header, two items and one total")
	assert.Contains(t, lines[1], "ごはん")
	assert.Contains(t, lines[2], "具だくさん")
	assert.Contains(t, lines[3], "Total")
	assert.Contains(t, lines[3], "350.0")
	assert.Contains(t, lines[3], "312.0")
}

func TestTotalCommandRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("nope\n"), 0o600))

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"total", path})
	require.Error(t, cmd.Execute())
}
