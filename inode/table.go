package inode

import (
	"fmt"

	"github.com/mit-pdos/go-ufs/alloc"
	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/super"
	"github.com/mit-pdos/go-ufs/util"
)

// Table reads and writes inode records in the inode table that starts at
// block super.INODESTRT. Every call goes to the disk; there is no cache.
type Table struct {
	d  disk.Disk
	sb *super.FsSuper
	tr *Translator
}

func MkTable(d disk.Disk, sb *super.FsSuper, a *alloc.Alloc) *Table {
	return &Table{
		d:  d,
		sb: sb,
		tr: MkTranslator(d, a),
	}
}

func (t *Table) Translator() *Translator {
	return t.tr
}

func (t *Table) Disk() disk.Disk {
	return t.d
}

func (t *Table) Super() *super.FsSuper {
	return t.sb
}

func (t *Table) record(b *buf.Buf, off uint64) *Inode {
	return Decode(b.Blk[off : off+uint64(t.sb.InodeSize)])
}

func (t *Table) readRecord(inum common.Inum) (*Inode, error) {
	bn, off := t.sb.Inum2Addr(inum)
	b, err := buf.ReadBuf(t.d, bn)
	if err != nil {
		return nil, err
	}
	return t.record(b, off), nil
}

func (t *Table) writeRecord(inum common.Inum, ip *Inode) error {
	bn, off := t.sb.Inum2Addr(inum)
	b, err := buf.ReadBuf(t.d, bn)
	if err != nil {
		return err
	}
	rec := b.Blk[off : off+uint64(t.sb.InodeSize)]
	for i := range rec {
		rec[i] = 0
	}
	copy(rec, ip.Encode())
	return b.Write(t.d)
}

// Get loads inode inum. Slots that were never allocated, or have been
// freed, are reported as common.ErrNotFound.
func (t *Table) Get(inum common.Inum) (*Inode, error) {
	if !t.sb.ValidInum(inum) {
		return nil, fmt.Errorf("inode %d: %w: outside table of %d", inum,
			common.ErrNotFound, t.sb.NInodes)
	}
	ip, err := t.readRecord(inum)
	if err != nil {
		return nil, fmt.Errorf("inode %d: %w", inum, err)
	}
	if !ip.inUse() {
		return nil, fmt.Errorf("inode %d: %w: not allocated", inum, common.ErrNotFound)
	}
	if ip.Inum != inum {
		return nil, fmt.Errorf("inode %d: %w: record claims inum %d", inum,
			common.ErrInvalid, ip.Inum)
	}
	util.DPrintf(10, "Get: %v\n", ip)
	return ip, nil
}

// Alloc claims the lowest free inode above the root, marks it in use with
// one link and saves it.
func (t *Table) Alloc(kind Kind) (*Inode, error) {
	if kind == KindFree {
		return nil, fmt.Errorf("allocating inode: %w: kind %v", common.ErrInvalid, kind)
	}
	var b *buf.Buf
	for inum := common.ROOTINUM + 1; t.sb.ValidInum(inum); inum++ {
		bn, off := t.sb.Inum2Addr(inum)
		if b == nil || b.Blkno != bn {
			var err error
			b, err = buf.ReadBuf(t.d, bn)
			if err != nil {
				return nil, fmt.Errorf("allocating inode: %w", err)
			}
		}
		if t.record(b, off).inUse() {
			continue
		}
		ip := &Inode{Inum: inum, Kind: kind, Nlink: 1}
		if err := t.writeRecord(inum, ip); err != nil {
			return nil, fmt.Errorf("allocating inode: %w", err)
		}
		util.DPrintf(5, "Alloc: %v\n", ip)
		return ip, nil
	}
	return nil, fmt.Errorf("allocating inode: %w: all %d inodes in use",
		common.ErrExhausted, t.sb.NInodes)
}

// Put saves ip over its record. It never releases blocks, whatever the link
// count says.
func (t *Table) Put(ip *Inode) error {
	if !t.sb.ValidInum(ip.Inum) {
		return fmt.Errorf("saving inode %d: %w", ip.Inum, common.ErrInvalid)
	}
	if err := t.writeRecord(ip.Inum, ip); err != nil {
		return fmt.Errorf("saving inode %d: %w", ip.Inum, err)
	}
	util.DPrintf(10, "Put: %v\n", ip)
	return nil
}

// Free releases every block ip maps and marks its record free. The link
// count must already be zero.
func (t *Table) Free(ip *Inode) error {
	if !t.sb.ValidInum(ip.Inum) {
		return fmt.Errorf("freeing inode %d: %w", ip.Inum, common.ErrInvalid)
	}
	if ip.Nlink != 0 {
		return fmt.Errorf("freeing inode %d: %w: %d links remain", ip.Inum,
			common.ErrInvalid, ip.Nlink)
	}
	if err := t.tr.Truncate(ip); err != nil {
		return fmt.Errorf("freeing inode %d: %w", ip.Inum, err)
	}
	inum := ip.Inum
	*ip = Inode{Inum: inum}
	if err := t.writeRecord(inum, &Inode{}); err != nil {
		return fmt.Errorf("freeing inode %d: %w", inum, err)
	}
	util.DPrintf(5, "Free: %d\n", inum)
	return nil
}

// ForEach calls f on every in-use inode in inum order, stopping at the first
// error.
func (t *Table) ForEach(f func(ip *Inode) error) error {
	var b *buf.Buf
	for inum := common.ROOTINUM; t.sb.ValidInum(inum); inum++ {
		bn, off := t.sb.Inum2Addr(inum)
		if b == nil || b.Blkno != bn {
			var err error
			b, err = buf.ReadBuf(t.d, bn)
			if err != nil {
				return fmt.Errorf("scanning inodes: %w", err)
			}
		}
		ip := t.record(b, off)
		if !ip.inUse() {
			continue
		}
		if err := f(ip); err != nil {
			return err
		}
	}
	return nil
}
