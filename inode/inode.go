package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-ufs/addr"
	"github.com/mit-pdos/go-ufs/common"
)

type Kind uint64

const (
	KindFree Kind = 0
	KindFile Kind = 1
	KindDir  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	}
	return fmt.Sprintf("kind(%d)", uint64(k))
}

// Inode is an in-memory copy of an on-disk inode record. Copies are
// independent: saving one overwrites whatever another copy saved earlier.
type Inode struct {
	Inum      common.Inum
	Kind      Kind
	Nlink     uint64
	NBlocks   uint64 // logical blocks mapped
	Size      uint64 // bytes
	Mtime     uint64
	Direct    [common.NDIRECT]common.Bnum
	Indirect  common.Bnum
	DIndirect common.Bnum
	TIndirect common.Bnum
}

func (ip *Inode) IsDir() bool {
	return ip.Kind == KindDir
}

func (ip *Inode) inUse() bool {
	return ip.Kind != KindFree || ip.Nlink != 0
}

// tierRoot returns the inode field holding the root block of an indirect tier.
func (ip *Inode) tierRoot(t addr.Tier) *common.Bnum {
	switch t {
	case addr.Single:
		return &ip.Indirect
	case addr.Double:
		return &ip.DIndirect
	case addr.Triple:
		return &ip.TIndirect
	}
	panic("tierRoot: direct tier has no root")
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.MININODESZ)
	enc.PutInt(uint64(ip.Inum))
	enc.PutInt(uint64(ip.Kind))
	enc.PutInt(ip.Nlink)
	enc.PutInt(ip.NBlocks)
	enc.PutInt(ip.Size)
	enc.PutInt(ip.Mtime)
	enc.PutInts(ip.Direct[:])
	enc.PutInt(ip.Indirect)
	enc.PutInt(ip.DIndirect)
	enc.PutInt(ip.TIndirect)
	return enc.Finish()
}

func Decode(b []byte) *Inode {
	dec := marshal.NewDec(b)
	ip := &Inode{}
	ip.Inum = common.Inum(dec.GetInt())
	ip.Kind = Kind(dec.GetInt())
	ip.Nlink = dec.GetInt()
	ip.NBlocks = dec.GetInt()
	ip.Size = dec.GetInt()
	ip.Mtime = dec.GetInt()
	copy(ip.Direct[:], dec.GetInts(common.NDIRECT))
	ip.Indirect = dec.GetInt()
	ip.DIndirect = dec.GetInt()
	ip.TIndirect = dec.GetInt()
	return ip
}

func (ip *Inode) String() string {
	return fmt.Sprintf("{inum %d %v nlink %d nblocks %d size %d mtime %d}",
		ip.Inum, ip.Kind, ip.Nlink, ip.NBlocks, ip.Size, ip.Mtime)
}
