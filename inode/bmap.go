package inode

import (
	"fmt"

	"github.com/mit-pdos/go-ufs/addr"
	"github.com/mit-pdos/go-ufs/alloc"
	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/util"
)

// Translator maps an inode's logical blocks to physical blocks through its
// direct array and its single, double and triple indirection trees.
// Indirection blocks hold disk.BlockSize/common.SLOTSZ block numbers.
type Translator struct {
	d disk.Disk
	a *alloc.Alloc
	l uint64
}

func MkTranslator(d disk.Disk, a *alloc.Alloc) *Translator {
	return &Translator{
		d: d,
		a: a,
		l: disk.BlockSize / common.SLOTSZ,
	}
}

// PerBlock is the number of entries in an indirection block.
func (tr *Translator) PerBlock() uint64 {
	return tr.l
}

func (tr *Translator) MaxBlocks() uint64 {
	return addr.MaxBlocks(tr.l)
}

// Bmap returns the physical block holding logical block lbn of ip.
func (tr *Translator) Bmap(ip *Inode, lbn uint64) (common.Bnum, error) {
	if lbn >= ip.NBlocks {
		return common.NULLBNUM, fmt.Errorf("bmap inode %d: %w: block %d of %d",
			ip.Inum, common.ErrInvalid, lbn, ip.NBlocks)
	}
	pos, ok := addr.Locate(lbn, tr.l)
	if !ok {
		return common.NULLBNUM, fmt.Errorf("bmap inode %d: %w: block %d too large",
			ip.Inum, common.ErrInvalid, lbn)
	}
	var bn common.Bnum
	if pos.Tier == addr.Direct {
		bn = ip.Direct[pos.Idx[0]]
	} else {
		bn = *ip.tierRoot(pos.Tier)
		for i := 0; i < pos.Depth() && bn != common.NULLBNUM; i++ {
			b, err := buf.ReadBuf(tr.d, bn)
			if err != nil {
				return common.NULLBNUM, fmt.Errorf("bmap inode %d: %w", ip.Inum, err)
			}
			bn = b.BnumGet(pos.Idx[i])
		}
	}
	if bn == common.NULLBNUM {
		return common.NULLBNUM, fmt.Errorf("bmap inode %d: %w: no block at %v",
			ip.Inum, common.ErrNotFound, pos)
	}
	util.DPrintf(15, "Bmap: inode %d lbn %d %v -> %d\n", ip.Inum, lbn, pos, bn)
	return bn, nil
}

// Grow maps fresh zeroed blocks until ip has n logical blocks. On failure
// ip keeps the blocks mapped so far; the caller decides whether to save it.
func (tr *Translator) Grow(ip *Inode, n uint64) error {
	if n > tr.MaxBlocks() {
		return fmt.Errorf("growing inode %d: %w: %d blocks exceeds %d",
			ip.Inum, common.ErrInvalid, n, tr.MaxBlocks())
	}
	for ip.NBlocks < n {
		if err := tr.mapBlock(ip, ip.NBlocks); err != nil {
			return fmt.Errorf("growing inode %d: %w", ip.Inum, err)
		}
		ip.NBlocks++
	}
	return nil
}

func (tr *Translator) mapBlock(ip *Inode, lbn uint64) error {
	pos, _ := addr.Locate(lbn, tr.l)
	if pos.Tier == addr.Direct {
		bn, err := tr.a.AllocNum()
		if err != nil {
			return err
		}
		ip.Direct[pos.Idx[0]] = bn
		return nil
	}
	root := ip.tierRoot(pos.Tier)
	if *root == common.NULLBNUM {
		bn, err := tr.a.AllocNum()
		if err != nil {
			return err
		}
		*root = bn
	}
	cur := *root
	for i := 0; i < pos.Depth(); i++ {
		b, err := buf.ReadBuf(tr.d, cur)
		if err != nil {
			return err
		}
		next := b.BnumGet(pos.Idx[i])
		if next == common.NULLBNUM {
			next, err = tr.a.AllocNum()
			if err != nil {
				return err
			}
			b.BnumPut(pos.Idx[i], next)
			if err := b.Write(tr.d); err != nil {
				return err
			}
		}
		cur = next
	}
	return nil
}

// Shrink releases logical blocks from the end until ip has n left, along
// with any indirection block that no longer maps anything.
func (tr *Translator) Shrink(ip *Inode, n uint64) error {
	for ip.NBlocks > n {
		if err := tr.unmapBlock(ip, ip.NBlocks-1); err != nil {
			return fmt.Errorf("shrinking inode %d: %w", ip.Inum, err)
		}
		ip.NBlocks--
	}
	return nil
}

func (tr *Translator) unmapBlock(ip *Inode, lbn uint64) error {
	pos, ok := addr.Locate(lbn, tr.l)
	if !ok {
		return fmt.Errorf("%w: block %d too large", common.ErrInvalid, lbn)
	}
	if pos.Tier == addr.Direct {
		bn := ip.Direct[pos.Idx[0]]
		if bn == common.NULLBNUM {
			return nil
		}
		if err := tr.a.FreeNum(bn); err != nil {
			return err
		}
		ip.Direct[pos.Idx[0]] = common.NULLBNUM
		return nil
	}

	root := ip.tierRoot(pos.Tier)
	chain := make([]*buf.Buf, 0, 3)
	cur := *root
	for i := 0; i < pos.Depth() && cur != common.NULLBNUM; i++ {
		b, err := buf.ReadBuf(tr.d, cur)
		if err != nil {
			return err
		}
		chain = append(chain, b)
		cur = b.BnumGet(pos.Idx[i])
	}
	if len(chain) == pos.Depth() && cur != common.NULLBNUM {
		if err := tr.a.FreeNum(cur); err != nil {
			return err
		}
	}

	// clear the path bottom-up, releasing indirection blocks left empty
	for i := len(chain) - 1; i >= 0; i-- {
		b := chain[i]
		b.BnumPut(pos.Idx[i], common.NULLBNUM)
		if !b.IsZero() {
			return b.Write(tr.d)
		}
		if err := tr.a.Release(b); err != nil {
			return err
		}
	}
	*root = common.NULLBNUM
	return nil
}

// Truncate releases every block reachable from ip, including indirection
// blocks left behind by a Grow that failed part way.
func (tr *Translator) Truncate(ip *Inode) error {
	if err := tr.Shrink(ip, 0); err != nil {
		return err
	}
	for t := addr.Single; t <= addr.Triple; t++ {
		root := ip.tierRoot(t)
		if *root == common.NULLBNUM {
			continue
		}
		if err := tr.freeTree(*root, t.Depth()); err != nil {
			return fmt.Errorf("truncating inode %d: %w", ip.Inum, err)
		}
		*root = common.NULLBNUM
	}
	return nil
}

func (tr *Translator) freeTree(bn common.Bnum, depth int) error {
	b, err := buf.ReadBuf(tr.d, bn)
	if err != nil {
		return err
	}
	for i := uint64(0); i < b.NSlots(); i++ {
		child := b.BnumGet(i)
		if child == common.NULLBNUM {
			continue
		}
		if depth > 1 {
			err = tr.freeTree(child, depth-1)
		} else {
			err = tr.a.FreeNum(child)
		}
		if err != nil {
			return err
		}
	}
	return tr.a.FreeNum(bn)
}

// Walk calls f on every block ip references: direct blocks, then each
// indirection tree in preorder. Indirection blocks are reported with meta
// set.
func (tr *Translator) Walk(ip *Inode, f func(bn common.Bnum, meta bool) error) error {
	for _, bn := range ip.Direct {
		if bn == common.NULLBNUM {
			continue
		}
		if err := f(bn, false); err != nil {
			return err
		}
	}
	for t := addr.Single; t <= addr.Triple; t++ {
		root := *ip.tierRoot(t)
		if root == common.NULLBNUM {
			continue
		}
		if err := tr.walkTree(root, t.Depth(), f); err != nil {
			return err
		}
	}
	return nil
}

func (tr *Translator) walkTree(bn common.Bnum, depth int, f func(bn common.Bnum, meta bool) error) error {
	if err := f(bn, true); err != nil {
		return err
	}
	b, err := buf.ReadBuf(tr.d, bn)
	if err != nil {
		return fmt.Errorf("walking block %d: %w", bn, err)
	}
	for i := uint64(0); i < b.NSlots(); i++ {
		child := b.BnumGet(i)
		if child == common.NULLBNUM {
			continue
		}
		if depth > 1 {
			err = tr.walkTree(child, depth-1, f)
		} else {
			err = f(child, false)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
