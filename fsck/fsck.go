// Package fsck cross-checks the free list, the superblock free count and
// the blocks and directory entries of every in-use inode.
package fsck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/dir"
	"github.com/mit-pdos/go-ufs/inode"
	"github.com/mit-pdos/go-ufs/ufs"
	"github.com/mit-pdos/go-ufs/util"
)

type Report struct {
	FreeRecorded uint64 // free count in the superblock
	FreeCounted  uint64 // ids reachable from the free list
	Inodes       uint64 // in-use inodes
	Mapped       uint64 // blocks referenced by inodes, indirection blocks included
	Leaked       uint64 // data blocks neither free nor mapped
	Problems     []string
}

func (r *Report) Ok() bool {
	return len(r.Problems) == 0
}

func (r *Report) problem(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	util.DPrintf(1, "fsck: %s\n", msg)
	r.Problems = append(r.Problems, msg)
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "free %d (superblock %d), inodes %d, mapped %d, leaked %d\n",
		r.FreeCounted, r.FreeRecorded, r.Inodes, r.Mapped, r.Leaked)
	for _, p := range r.Problems {
		fmt.Fprintf(&sb, "  %s\n", p)
	}
	return sb.String()
}

// errSkip abandons the current walk after its problem has been recorded.
var errSkip = errors.New("skip")

type checker struct {
	fs    *ufs.Fs
	r     *Report
	free  map[common.Bnum]bool
	owner map[common.Bnum]common.Inum
	refs  map[common.Inum]uint64
	inUse map[common.Inum]*inode.Inode
}

func (c *checker) inDataRegion(bn common.Bnum) bool {
	return bn > c.fs.Alloc().Root() && bn < c.fs.Super().NBlocks
}

func (c *checker) checkFreeList() error {
	err := c.fs.Alloc().Walk(func(bn common.Bnum, link bool) error {
		if !c.inDataRegion(bn) {
			c.r.problem("free list holds block %d outside the data region", bn)
			if link {
				return errSkip
			}
			return nil
		}
		if c.free[bn] {
			c.r.problem("block %d is on the free list twice", bn)
			if link {
				return errSkip
			}
			return nil
		}
		c.free[bn] = true
		c.r.FreeCounted++
		return nil
	})
	if errors.Is(err, common.ErrInvalid) {
		c.r.problem("%v", err)
		err = nil
	}
	if err != nil && err != errSkip {
		return err
	}
	if c.r.FreeCounted != c.r.FreeRecorded {
		c.r.problem("superblock counts %d free blocks, free list holds %d",
			c.r.FreeRecorded, c.r.FreeCounted)
	}
	return nil
}

func (c *checker) checkBlocks(ip *inode.Inode) error {
	err := c.fs.Table().Translator().Walk(ip, func(bn common.Bnum, meta bool) error {
		if !c.inDataRegion(bn) {
			c.r.problem("inode %d references block %d outside the data region", ip.Inum, bn)
			return errSkip
		}
		if c.free[bn] {
			c.r.problem("block %d of inode %d is also free", bn, ip.Inum)
		}
		if other, ok := c.owner[bn]; ok {
			c.r.problem("block %d is used by inodes %d and %d", bn, other, ip.Inum)
			return nil
		}
		c.owner[bn] = ip.Inum
		c.r.Mapped++
		return nil
	})
	if err == errSkip {
		return nil
	}
	return err
}

func (c *checker) checkEntries(dp *inode.Inode) error {
	tr := c.fs.Table().Translator()
	for lbn := uint64(0); lbn < dp.NBlocks; lbn++ {
		bn, err := tr.Bmap(dp, lbn)
		if errors.Is(err, common.ErrNotFound) {
			c.r.problem("directory %d has a hole at block %d", dp.Inum, lbn)
			continue
		}
		if err != nil {
			return err
		}
		b, err := buf.ReadBuf(c.fs.Disk(), bn)
		if err != nil {
			return err
		}
		for _, de := range dir.Entries(b.Blk) {
			if _, ok := c.inUse[de.Inum]; !ok {
				c.r.problem("entry %q in directory %d names free inode %d",
					de.Name, dp.Inum, de.Inum)
				continue
			}
			c.refs[de.Inum]++
		}
	}
	return nil
}

// Check reads the whole file system and reports every inconsistency it
// finds. The error is non-nil only when the device fails.
func Check(fs *ufs.Fs) (*Report, error) {
	c := &checker{
		fs:    fs,
		r:     &Report{FreeRecorded: fs.Super().FreeBlocks},
		free:  make(map[common.Bnum]bool),
		owner: make(map[common.Bnum]common.Inum),
		refs:  make(map[common.Inum]uint64),
		inUse: make(map[common.Inum]*inode.Inode),
	}
	if err := c.checkFreeList(); err != nil {
		return nil, err
	}

	err := fs.Table().ForEach(func(ip *inode.Inode) error {
		c.inUse[ip.Inum] = ip
		c.r.Inodes++
		return c.checkBlocks(ip)
	})
	if err != nil {
		return nil, err
	}
	if _, ok := c.inUse[common.ROOTINUM]; !ok {
		c.r.problem("root inode %d is free", common.ROOTINUM)
	}

	for inum := common.ROOTINUM; fs.Super().ValidInum(inum); inum++ {
		ip, ok := c.inUse[inum]
		if !ok || !ip.IsDir() {
			continue
		}
		if err := c.checkEntries(ip); err != nil {
			return nil, err
		}
	}
	for inum := common.ROOTINUM + 1; fs.Super().ValidInum(inum); inum++ {
		ip, ok := c.inUse[inum]
		if ok && c.refs[inum] != ip.Nlink {
			c.r.problem("inode %d has %d links but %d directory entries",
				inum, ip.Nlink, c.refs[inum])
		}
	}

	for bn := fs.Alloc().Root() + 1; bn < fs.Super().NBlocks; bn++ {
		if !c.free[bn] {
			if _, ok := c.owner[bn]; !ok {
				c.r.Leaked++
			}
		}
	}
	if c.r.Leaked != 0 {
		c.r.problem("%d blocks are neither free nor in use", c.r.Leaked)
	}
	return c.r, nil
}
