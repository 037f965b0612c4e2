// Package dir encodes directory blocks: fixed-width entries holding a
// NUL-padded name and an inode number. An entry with an empty name is unused.
// Entries are not kept sorted.
package dir

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tchajed/goose/machine"

	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
)

const (
	NAMELEN  uint64 = 28
	DIRENTSZ uint64 = NAMELEN + 4
	NDIRENTS uint64 = disk.BlockSize / DIRENTSZ
)

type DirEnt struct {
	Name string
	Inum common.Inum
}

// ValidName reports whether name can be stored as one path component.
func ValidName(name string) error {
	if name == "" || uint64(len(name)) > NAMELEN ||
		strings.ContainsRune(name, common.PATHSEP) || strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: bad name %q", common.ErrInvalid, name)
	}
	return nil
}

func entry(blk disk.Block, i uint64) []byte {
	off := i * DIRENTSZ
	return blk[off : off+DIRENTSZ]
}

func nameOf(e []byte) []byte {
	n := e[:NAMELEN]
	if end := bytes.IndexByte(n, 0); end >= 0 {
		return n[:end]
	}
	return n
}

func Get(blk disk.Block, i uint64) DirEnt {
	e := entry(blk, i)
	return DirEnt{
		Name: string(nameOf(e)),
		Inum: common.Inum(machine.UInt32Get(e[NAMELEN:])),
	}
}

func Put(blk disk.Block, i uint64, de DirEnt) {
	e := entry(blk, i)
	for j := range e {
		e[j] = 0
	}
	copy(e[:NAMELEN], de.Name)
	machine.UInt32Put(e[NAMELEN:], uint32(de.Inum))
}

// Lookup scans the block for name; the first match wins.
func Lookup(blk disk.Block, name string) (common.Inum, bool) {
	want := []byte(name)
	for i := uint64(0); i < NDIRENTS; i++ {
		e := entry(blk, i)
		n := nameOf(e)
		if len(n) != 0 && bytes.Equal(n, want) {
			return common.Inum(machine.UInt32Get(e[NAMELEN:])), true
		}
	}
	return common.NULLINUM, false
}

// Add stores de in the first unused entry, reporting false if there is none.
func Add(blk disk.Block, de DirEnt) bool {
	for i := uint64(0); i < NDIRENTS; i++ {
		if len(nameOf(entry(blk, i))) == 0 {
			Put(blk, i, de)
			return true
		}
	}
	return false
}

// Remove clears the first entry called name.
func Remove(blk disk.Block, name string) bool {
	for i := uint64(0); i < NDIRENTS; i++ {
		if Get(blk, i).Name == name {
			Put(blk, i, DirEnt{})
			return true
		}
	}
	return false
}

// Entries lists the used entries in block order.
func Entries(blk disk.Block) []DirEnt {
	var ents []DirEnt
	for i := uint64(0); i < NDIRENTS; i++ {
		de := Get(blk, i)
		if de.Name != "" {
			ents = append(ents, de)
		}
	}
	return ents
}
