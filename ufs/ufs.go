// Package ufs ties the layout, the block allocator, the inode table and the
// path resolver together into a mountable file system handle.
//
// An Fs is not safe for concurrent use.
package ufs

import (
	"errors"
	"fmt"
	"time"

	"github.com/mit-pdos/go-ufs/alloc"
	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/dir"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/inode"
	"github.com/mit-pdos/go-ufs/namei"
	"github.com/mit-pdos/go-ufs/super"
	"github.com/mit-pdos/go-ufs/util"
)

type Params struct {
	NBlocks   uint64 // 0 means the whole device
	NInodes   uint16
	InodeSize uint16
}

type Fs struct {
	d   disk.Disk
	sb  *super.FsSuper
	a   *alloc.Alloc
	tab *inode.Table
}

func mkFs(d disk.Disk, sb *super.FsSuper) *Fs {
	a := alloc.MkAlloc(d, sb)
	return &Fs{
		d:   d,
		sb:  sb,
		a:   a,
		tab: inode.MkTable(d, sb, a),
	}
}

func now() uint64 {
	return uint64(time.Now().Unix())
}

// Mkfs formats d: a fresh superblock, an empty inode table, a root directory
// and every data block after the free-list root on the free list.
func Mkfs(d disk.Disk, p Params) (*Fs, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	if p.NBlocks == 0 {
		p.NBlocks = sz
	}
	sb := super.MkFsSuper(p.NInodes, p.InodeSize, p.NBlocks)
	if err := sb.Validate(sz); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	for bn := super.SUPERBLK; bn <= sb.FirstDataBlock(); bn++ {
		if err := buf.MkBuf(bn).Write(d); err != nil {
			return nil, fmt.Errorf("mkfs: %w", err)
		}
	}
	fs := mkFs(d, sb)
	for bn := fs.a.Root() + 1; bn < sb.NBlocks; bn++ {
		if err := fs.a.FreeNum(bn); err != nil {
			return nil, fmt.Errorf("mkfs: %w", err)
		}
	}
	root := &inode.Inode{Inum: common.ROOTINUM, Kind: inode.KindDir, Nlink: 1, Mtime: now()}
	if err := fs.tab.Put(root); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	if err := fs.Sync(); err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	util.DPrintf(1, "Mkfs: %v\n", sb)
	return fs, nil
}

// Mount opens a device formatted by Mkfs.
func Mount(d disk.Disk) (*Fs, error) {
	sb, err := super.ReadSuper(d)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	fs := mkFs(d, sb)
	if _, err := fs.tab.Get(common.ROOTINUM); err != nil {
		return nil, fmt.Errorf("mount: root directory: %w", err)
	}
	util.DPrintf(1, "Mount: %v\n", sb)
	return fs, nil
}

func (fs *Fs) Disk() disk.Disk {
	return fs.d
}

func (fs *Fs) Super() *super.FsSuper {
	return fs.sb
}

func (fs *Fs) Alloc() *alloc.Alloc {
	return fs.a
}

func (fs *Fs) Table() *inode.Table {
	return fs.tab
}

// Sync writes the in-memory superblock and waits for the device.
func (fs *Fs) Sync() error {
	if err := fs.sb.WriteSuper(fs.d); err != nil {
		return err
	}
	return fs.d.Barrier()
}

func (fs *Fs) Close() error {
	if err := fs.Sync(); err != nil {
		return err
	}
	return fs.d.Close()
}

func (fs *Fs) Namei(path string) (common.Inum, error) {
	return namei.Namei(fs.tab, path)
}

func (fs *Fs) Stat(inum common.Inum) (*inode.Inode, error) {
	return fs.tab.Get(inum)
}

func (fs *Fs) dirBlocks(dp *inode.Inode, f func(b *buf.Buf) (bool, error)) error {
	tr := fs.tab.Translator()
	for lbn := uint64(0); lbn < dp.NBlocks; lbn++ {
		bn, err := tr.Bmap(dp, lbn)
		if err != nil {
			return err
		}
		b, err := buf.ReadBuf(fs.d, bn)
		if err != nil {
			return err
		}
		done, err := f(b)
		if err != nil || done {
			return err
		}
	}
	return nil
}

// addEntry stores de in the first free entry of dp, growing dp by a block
// when every entry is taken.
func (fs *Fs) addEntry(dp *inode.Inode, de dir.DirEnt) error {
	added := false
	err := fs.dirBlocks(dp, func(b *buf.Buf) (bool, error) {
		if !dir.Add(b.Blk, de) {
			return false, nil
		}
		added = true
		return true, b.Write(fs.d)
	})
	if err != nil || added {
		return err
	}

	tr := fs.tab.Translator()
	if err := tr.Grow(dp, dp.NBlocks+1); err != nil {
		// keep whatever Grow attached so Free can find it later
		if perr := fs.tab.Put(dp); perr != nil {
			return perr
		}
		return err
	}
	dp.Size += disk.BlockSize
	bn, err := tr.Bmap(dp, dp.NBlocks-1)
	if err != nil {
		return err
	}
	b := buf.MkBuf(bn)
	dir.Add(b.Blk, de)
	return b.Write(fs.d)
}

func (fs *Fs) removeEntry(dp *inode.Inode, name string) error {
	removed := false
	err := fs.dirBlocks(dp, func(b *buf.Buf) (bool, error) {
		if !dir.Remove(b.Blk, name) {
			return false, nil
		}
		removed = true
		return true, b.Write(fs.d)
	})
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %q in inode %d", common.ErrNotFound, name, dp.Inum)
	}
	return nil
}

func (fs *Fs) entries(dp *inode.Inode) ([]dir.DirEnt, error) {
	ents := []dir.DirEnt{}
	err := fs.dirBlocks(dp, func(b *buf.Buf) (bool, error) {
		ents = append(ents, dir.Entries(b.Blk)...)
		return false, nil
	})
	return ents, err
}

// parentFor resolves the directory that would hold path and checks that
// the last component is a new, storable name.
func (fs *Fs) parentFor(path string) (*inode.Inode, string, error) {
	dp, name, err := namei.NameiParent(fs.tab, path)
	if err != nil {
		return nil, "", err
	}
	if err := dir.ValidName(name); err != nil {
		return nil, "", err
	}
	_, err = namei.Lookup(fs.tab, dp, name)
	if err == nil {
		return nil, "", fmt.Errorf("%w: %q exists", common.ErrInvalid, name)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, "", err
	}
	return dp, name, nil
}

// Create makes an empty file or directory at path and returns its inode
// number.
func (fs *Fs) Create(path string, kind inode.Kind) (common.Inum, error) {
	dp, name, err := fs.parentFor(path)
	if err != nil {
		return common.NULLINUM, fmt.Errorf("create %q: %w", path, err)
	}
	ip, err := fs.tab.Alloc(kind)
	if err != nil {
		return common.NULLINUM, fmt.Errorf("create %q: %w", path, err)
	}
	ip.Mtime = now()
	if err := fs.tab.Put(ip); err != nil {
		return common.NULLINUM, fmt.Errorf("create %q: %w", path, err)
	}
	if err := fs.addEntry(dp, dir.DirEnt{Name: name, Inum: ip.Inum}); err != nil {
		ip.Nlink = 0
		if ferr := fs.tab.Free(ip); ferr != nil {
			util.DPrintf(0, "create %q: leaking inode %d: %v\n", path, ip.Inum, ferr)
		}
		return common.NULLINUM, fmt.Errorf("create %q: %w", path, err)
	}
	dp.Mtime = now()
	if err := fs.tab.Put(dp); err != nil {
		return common.NULLINUM, fmt.Errorf("create %q: %w", path, err)
	}
	if err := fs.Sync(); err != nil {
		return common.NULLINUM, fmt.Errorf("create %q: %w", path, err)
	}
	util.DPrintf(1, "Create: %q -> %v\n", path, ip)
	return ip.Inum, nil
}

// Link adds a second name for the file at oldpath. Directories cannot be
// linked.
func (fs *Fs) Link(oldpath string, newpath string) error {
	ip, err := namei.NameiInode(fs.tab, oldpath)
	if err != nil {
		return fmt.Errorf("link %q: %w", oldpath, err)
	}
	if ip.IsDir() {
		return fmt.Errorf("link %q: %w: is a directory", oldpath, common.ErrInvalid)
	}
	dp, name, err := fs.parentFor(newpath)
	if err != nil {
		return fmt.Errorf("link %q: %w", newpath, err)
	}
	if err := fs.addEntry(dp, dir.DirEnt{Name: name, Inum: ip.Inum}); err != nil {
		return fmt.Errorf("link %q: %w", newpath, err)
	}
	ip.Nlink++
	dp.Mtime = now()
	if err := fs.tab.Put(dp); err != nil {
		return fmt.Errorf("link %q: %w", newpath, err)
	}
	if err := fs.tab.Put(ip); err != nil {
		return fmt.Errorf("link %q: %w", newpath, err)
	}
	return fs.Sync()
}

// Remove drops path's directory entry and frees the inode once no names
// are left. Directories must be empty.
func (fs *Fs) Remove(path string) error {
	dp, name, err := namei.NameiParent(fs.tab, path)
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	inum, err := namei.Lookup(fs.tab, dp, name)
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	ip, err := fs.tab.Get(inum)
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	if ip.IsDir() {
		ents, err := fs.entries(ip)
		if err != nil {
			return fmt.Errorf("remove %q: %w", path, err)
		}
		if len(ents) != 0 {
			return fmt.Errorf("remove %q: %w: directory not empty", path, common.ErrInvalid)
		}
	}
	if err := fs.removeEntry(dp, name); err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	dp.Mtime = now()
	if err := fs.tab.Put(dp); err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	ip.Nlink--
	if ip.Nlink == 0 {
		err = fs.tab.Free(ip)
	} else {
		err = fs.tab.Put(ip)
	}
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	util.DPrintf(1, "Remove: %q (inode %d)\n", path, inum)
	return fs.Sync()
}

// ReadDir lists the directory at path in block order.
func (fs *Fs) ReadDir(path string) ([]dir.DirEnt, error) {
	dp, err := namei.NameiInode(fs.tab, path)
	if err != nil {
		return nil, fmt.Errorf("readdir %q: %w", path, err)
	}
	if !dp.IsDir() {
		return nil, fmt.Errorf("readdir %q: %w: not a directory", path, common.ErrInvalid)
	}
	ents, err := fs.entries(dp)
	if err != nil {
		return nil, fmt.Errorf("readdir %q: %w", path, err)
	}
	return ents, nil
}
