// Package namei resolves absolute slash-separated paths to inode numbers by
// walking directory blocks from the root inode.
package namei

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/dir"
	"github.com/mit-pdos/go-ufs/inode"
	"github.com/mit-pdos/go-ufs/util"
)

// Split checks that path is absolute and returns its non-empty components.
// "/" has none.
func Split(path string) ([]string, error) {
	if path == "" || path[0] != common.PATHSEP {
		return nil, fmt.Errorf("path %q: %w: not absolute", path, common.ErrInvalid)
	}
	var names []string
	for _, n := range strings.Split(path, string(common.PATHSEP)) {
		if n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// Lookup scans dp's blocks in order for name. The first match wins.
func Lookup(tab *inode.Table, dp *inode.Inode, name string) (common.Inum, error) {
	if !dp.IsDir() {
		return common.NULLINUM, fmt.Errorf("lookup %q in inode %d: %w: not a directory",
			name, dp.Inum, common.ErrNotFound)
	}
	tr := tab.Translator()
	for lbn := uint64(0); lbn < dp.NBlocks; lbn++ {
		bn, err := tr.Bmap(dp, lbn)
		if err != nil {
			return common.NULLINUM, err
		}
		b, err := buf.ReadBuf(tab.Disk(), bn)
		if err != nil {
			return common.NULLINUM, err
		}
		if inum, ok := dir.Lookup(b.Blk, name); ok {
			util.DPrintf(10, "Lookup: %q in %d -> %d\n", name, dp.Inum, inum)
			return inum, nil
		}
	}
	return common.NULLINUM, fmt.Errorf("lookup %q in inode %d: %w", name, dp.Inum,
		common.ErrNotFound)
}

func walk(tab *inode.Table, names []string) (*inode.Inode, error) {
	ip, err := tab.Get(common.ROOTINUM)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		inum, err := Lookup(tab, ip, name)
		if err != nil {
			return nil, err
		}
		ip, err = tab.Get(inum)
		if err != nil {
			return nil, err
		}
	}
	return ip, nil
}

// Namei returns the inode number path names.
func Namei(tab *inode.Table, path string) (common.Inum, error) {
	ip, err := NameiInode(tab, path)
	if err != nil {
		return common.NULLINUM, err
	}
	return ip.Inum, nil
}

// NameiInode is Namei returning the loaded inode.
func NameiInode(tab *inode.Table, path string) (*inode.Inode, error) {
	names, err := Split(path)
	if err != nil {
		return nil, err
	}
	ip, err := walk(tab, names)
	if err != nil {
		return nil, fmt.Errorf("namei %q: %w", path, err)
	}
	return ip, nil
}

// NameiParent resolves every component but the last and returns the parent
// directory together with the last component. The root has no parent.
func NameiParent(tab *inode.Table, path string) (*inode.Inode, string, error) {
	names, err := Split(path)
	if err != nil {
		return nil, "", err
	}
	if len(names) == 0 {
		return nil, "", fmt.Errorf("path %q: %w: root has no parent", path, common.ErrInvalid)
	}
	dp, err := walk(tab, names[:len(names)-1])
	if err != nil {
		return nil, "", fmt.Errorf("namei %q: %w", path, err)
	}
	if !dp.IsDir() {
		return nil, "", fmt.Errorf("namei %q: %w: parent %d is not a directory",
			path, common.ErrNotFound, dp.Inum)
	}
	return dp, names[len(names)-1], nil
}
