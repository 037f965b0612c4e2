package alloc

import (
	"fmt"

	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/super"
	"github.com/mit-pdos/go-ufs/util"
)

// Alloc hands out data blocks from a free list kept inside the free blocks
// themselves. The root list block lives at the first data block and never
// moves; its slot 1 links to the next list block and slots 2..N hold spare
// block numbers.
//
// Alloc is not safe for concurrent use. The free count in the superblock is
// updated in memory; persisting the superblock is the caller's job.
type Alloc struct {
	d    disk.Disk
	sb   *super.FsSuper
	root common.Bnum
}

func MkAlloc(d disk.Disk, sb *super.FsSuper) *Alloc {
	a := &Alloc{
		d:    d,
		sb:   sb,
		root: sb.FirstDataBlock(),
	}
	return a
}

func (a *Alloc) Root() common.Bnum {
	return a.root
}

func (a *Alloc) NumFree() uint64 {
	return a.sb.FreeBlocks
}

func (a *Alloc) validBnum(bn common.Bnum) bool {
	return bn > a.root && bn < a.sb.NBlocks
}

func (a *Alloc) zeroBlock(bn common.Bnum) error {
	return buf.MkBuf(bn).Write(a.d)
}

// AllocNum removes a block from the free list and returns its number. The
// block reads as zeros on disk. When the list is empty it returns an error
// wrapping common.ErrExhausted and changes nothing.
func (a *Alloc) AllocNum() (common.Bnum, error) {
	root, err := buf.ReadBuf(a.d, a.root)
	if err != nil {
		return common.NULLBNUM, fmt.Errorf("allocating block: %w", err)
	}

	var bn common.Bnum
	if k, ok := firstSpare(root); ok {
		bn = slot(root, k)
		if !a.validBnum(bn) {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w: corrupt spare %d in slot %d",
				common.ErrInvalid, bn, k)
		}
		takeSpare(root, k)
		if err := a.zeroBlock(bn); err != nil {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w", err)
		}
		if err := root.Write(a.d); err != nil {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w", err)
		}
		a.sb.FreeBlocks -= 1
	} else {
		bn = slot(root, LinkSlot)
		if bn == common.NULLBNUM {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w: free list is empty",
				common.ErrExhausted)
		}
		if !a.validBnum(bn) {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w: corrupt link %d",
				common.ErrInvalid, bn)
		}
		// the next list block takes over as root and is handed out itself
		next, err := buf.ReadBuf(a.d, bn)
		if err != nil {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w", err)
		}
		if err := next.WriteTo(a.d, a.root); err != nil {
			return common.NULLBNUM, fmt.Errorf("allocating block: %w", err)
		}
		a.sb.FreeBlocks -= 1
		if err := a.zeroBlock(bn); err != nil {
			// bn is already off the list; put it back rather than leak it
			if ferr := a.FreeNum(bn); ferr != nil {
				util.DPrintf(0, "AllocNum: leaking block %d: %v\n", bn, ferr)
			}
			return common.NULLBNUM, fmt.Errorf("allocating block: %w", err)
		}
	}
	util.DPrintf(5, "AllocNum: %d free %d\n", bn, a.sb.FreeBlocks)
	return bn, nil
}

// FreeNum puts bn back on the free list. Its old contents are overwritten.
func (a *Alloc) FreeNum(bn common.Bnum) error {
	if !a.validBnum(bn) {
		return fmt.Errorf("freeing block %d: %w: outside data region (%d, %d)",
			bn, common.ErrInvalid, a.root, a.sb.NBlocks)
	}
	root, err := buf.ReadBuf(a.d, a.root)
	if err != nil {
		return fmt.Errorf("freeing block %d: %w", bn, err)
	}

	if k, ok := firstZeroFrom(root, FirstSpareSlot); ok {
		if err := a.zeroBlock(bn); err != nil {
			return fmt.Errorf("freeing block %d: %w", bn, err)
		}
		setSlot(root, k, bn)
		if err := root.Write(a.d); err != nil {
			return fmt.Errorf("freeing block %d: %w", bn, err)
		}
	} else {
		// root is full: bn inherits the root's contents and becomes the
		// first link of the chain
		if err := root.WriteTo(a.d, bn); err != nil {
			return fmt.Errorf("freeing block %d: %w", bn, err)
		}
		newRoot := buf.MkBuf(a.root)
		setSlot(newRoot, LinkSlot, bn)
		if err := newRoot.Write(a.d); err != nil {
			return fmt.Errorf("freeing block %d: %w", bn, err)
		}
	}
	a.sb.FreeBlocks += 1
	util.DPrintf(5, "FreeNum: %d free %d\n", bn, a.sb.FreeBlocks)
	return nil
}

// Release frees a block the caller holds, clearing the caller's copy too.
func (a *Alloc) Release(b *buf.Buf) error {
	if err := a.FreeNum(b.Blkno); err != nil {
		return err
	}
	b.Zero()
	return nil
}

// Walk calls f on every block reachable from the root: list blocks with
// link set, spare blocks without. It stops at the first error from f, and
// reports a chain longer than the device as a cycle.
func (a *Alloc) Walk(f func(bn common.Bnum, link bool) error) error {
	cur := a.root
	for steps := uint64(0); ; steps++ {
		if steps > a.sb.NBlocks {
			return fmt.Errorf("walking free list: %w: cycle through block %d",
				common.ErrInvalid, cur)
		}
		b, err := buf.ReadBuf(a.d, cur)
		if err != nil {
			return fmt.Errorf("walking free list: %w", err)
		}
		for k := FirstSpareSlot; k <= SlotCount(b); k++ {
			if bn := slot(b, k); bn != common.NULLBNUM {
				if err := f(bn, false); err != nil {
					return err
				}
			}
		}
		next := slot(b, LinkSlot)
		if next == common.NULLBNUM {
			return nil
		}
		if err := f(next, true); err != nil {
			return err
		}
		cur = next
	}
}
