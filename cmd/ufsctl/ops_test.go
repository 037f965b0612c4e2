package main

import (
	"bytes"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/ufs"
)

func findOp(name string) *op {
	for i := range ops {
		if ops[i].name == name {
			return &ops[i]
		}
	}
	return nil
}

func runOp(t *testing.T, fs *ufs.Fs, name string, args ...string) (string, error) {
	o := findOp(name)
	require.NotNil(t, o, name)
	if err := o.check(args); err != nil {
		return "", err
	}
	var out bytes.Buffer
	err := o.run(writerPrinter{&out}, fs, args)
	return out.String(), err
}

func TestOps(t *testing.T) {
	fs, err := ufs.Mkfs(disk.NewMemDisk(500), ufs.Params{NInodes: 32, InodeSize: 256})
	require.NoError(t, err)

	_, err = runOp(t, fs, "mkdir", "/a")
	require.NoError(t, err)
	_, err = runOp(t, fs, "touch", "/a/b")
	require.NoError(t, err)
	_, err = runOp(t, fs, "ln", "/a/b", "/c")
	require.NoError(t, err)

	out, err := runOp(t, fs, "namei", "/a/b")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runOp(t, fs, "ls", "/")
	require.NoError(t, err)
	assert.Contains(t, out, " a\n")
	assert.Contains(t, out, " c\n")

	out, err = runOp(t, fs, "stat", "/a")
	require.NoError(t, err)
	assert.Contains(t, out, "inum 2 dir")
	assert.Contains(t, out, "  0 -> ")

	out, err = runOp(t, fs, "fsck")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "free "))

	_, err = runOp(t, fs, "rm", "/a")
	assert.True(t, errors.Is(err, common.ErrInvalid))
	_, err = runOp(t, fs, "rm", "/a/b")
	require.NoError(t, err)
	_, err = runOp(t, fs, "namei", "/a/b")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = runOp(t, fs, "namei")
	assert.Error(t, err, "missing argument")

	out, err = runOp(t, fs, "super")
	require.NoError(t, err)
	assert.Contains(t, out, "first data block 3")
}

func TestCommandLine(t *testing.T) {
	dir, err := ioutil.TempDir("", "ufsctl")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	img := filepath.Join(dir, "test.img")
	setenv(t, "UFS_CONFIG_FILE", "")

	run := func(args ...string) string {
		var c Config
		var out bytes.Buffer
		app := newApp(&c)
		app.Writer = &out
		err := app.Run(append([]string{appName, "--image", img}, args...))
		require.NoError(t, err, args)
		return out.String()
	}

	run("mkfs", "--blocks", "256", "--inodes", "32")
	run("mkdir", "/d")
	run("touch", "/d/f")
	assert.Equal(t, "3\n", run("namei", "/d/f"))
	assert.Contains(t, run("ls", "/d"), " f\n")
	run("fsck")
}
