// Package super holds the superblock and the arithmetic that places the
// inode table and the data region on disk.
//
// Block 0 holds the superblock, the inode table starts at block 1 and the
// data region follows it. The first data block is permanently the root of
// the free list.
package super

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/util"
)

const (
	SUPERBLK  common.Bnum = 0
	INODESTRT common.Bnum = 1

	uuidOff uint64 = 5 * 8 // after the five encoded counters

	// block ids are stored in 4-byte slots
	MaxBlocks uint64 = 1 << 32
)

// FsSuper is the in-memory superblock. A single *FsSuper is threaded through
// every layer of one mounted device; nothing about it is global.
type FsSuper struct {
	BlockSize  uint16
	NInodes    uint16
	InodeSize  uint16
	FreeBlocks uint64
	NBlocks    uint64 // device size in blocks
	Id         uuid.UUID
}

func MkFsSuper(ninodes uint16, inodesz uint16, nblocks uint64) *FsSuper {
	return &FsSuper{
		BlockSize:  uint16(disk.BlockSize),
		NInodes:    ninodes,
		InodeSize:  inodesz,
		FreeBlocks: 0,
		NBlocks:    nblocks,
		Id:         uuid.New(),
	}
}

// InodeBlocks is the number of blocks taken by the inode table.
func (sb *FsSuper) InodeBlocks() uint64 {
	return util.RoundUp(uint64(sb.NInodes)*uint64(sb.InodeSize), uint64(sb.BlockSize))
}

// FirstDataBlock is the reserved block plus the inode table.
func (sb *FsSuper) FirstDataBlock() common.Bnum {
	return INODESTRT + sb.InodeBlocks()
}

func (sb *FsSuper) InodesPerBlock() uint64 {
	return uint64(sb.BlockSize) / uint64(sb.InodeSize)
}

// Inum2Addr returns the block and byte offset of inum's record. Slot k of
// the table holds inode k+1.
func (sb *FsSuper) Inum2Addr(inum common.Inum) (common.Bnum, uint64) {
	k := uint64(inum) - 1
	ipb := sb.InodesPerBlock()
	return INODESTRT + k/ipb, (k % ipb) * uint64(sb.InodeSize)
}

func (sb *FsSuper) ValidInum(inum common.Inum) bool {
	return inum != common.NULLINUM && uint64(inum) <= uint64(sb.NInodes)
}

// Validate checks the parameters against a device of devBlocks blocks.
func (sb *FsSuper) Validate(devBlocks uint64) error {
	if uint64(sb.BlockSize) != disk.BlockSize {
		return fmt.Errorf("%w: block size %d, device uses %d",
			common.ErrInvalid, sb.BlockSize, disk.BlockSize)
	}
	if sb.NInodes == 0 {
		return fmt.Errorf("%w: no inodes", common.ErrInvalid)
	}
	if uint64(sb.InodeSize) < common.MININODESZ ||
		uint64(sb.BlockSize)%uint64(sb.InodeSize) != 0 {
		return fmt.Errorf("%w: inode size %d", common.ErrInvalid, sb.InodeSize)
	}
	if sb.NBlocks > devBlocks {
		return fmt.Errorf("%w: superblock claims %d blocks, device has %d",
			common.ErrInvalid, sb.NBlocks, devBlocks)
	}
	if sb.NBlocks > MaxBlocks {
		return fmt.Errorf("%w: %d blocks exceeds %d addressable by 4-byte ids",
			common.ErrInvalid, sb.NBlocks, MaxBlocks)
	}
	if sb.FirstDataBlock() >= sb.NBlocks {
		return fmt.Errorf("%w: no room for data region (%d blocks)",
			common.ErrInvalid, sb.NBlocks)
	}
	return nil
}

func (sb *FsSuper) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(uint64(sb.BlockSize))
	enc.PutInt(uint64(sb.NInodes))
	enc.PutInt(uint64(sb.InodeSize))
	enc.PutInt(sb.FreeBlocks)
	enc.PutInt(sb.NBlocks)
	blk := enc.Finish()
	copy(blk[uuidOff:uuidOff+16], sb.Id[:])
	return blk
}

func getUint16(dec marshal.Dec, what string) (uint16, error) {
	v := dec.GetInt()
	if v > 0xffff {
		return 0, fmt.Errorf("%w: %s %d does not fit in 16 bits", common.ErrInvalid, what, v)
	}
	return uint16(v), nil
}

func Decode(blk disk.Block) (*FsSuper, error) {
	dec := marshal.NewDec(blk)
	sb := &FsSuper{}
	var err error
	if sb.BlockSize, err = getUint16(dec, "block size"); err != nil {
		return nil, err
	}
	if sb.NInodes, err = getUint16(dec, "inode count"); err != nil {
		return nil, err
	}
	if sb.InodeSize, err = getUint16(dec, "inode size"); err != nil {
		return nil, err
	}
	sb.FreeBlocks = dec.GetInt()
	sb.NBlocks = dec.GetInt()
	copy(sb.Id[:], blk[uuidOff:uuidOff+16])
	return sb, nil
}

func ReadSuper(d disk.Disk) (*FsSuper, error) {
	blk, err := d.Read(SUPERBLK)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb, err := Decode(blk)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sz, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if err := sb.Validate(sz); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	util.DPrintf(1, "ReadSuper: %v\n", sb)
	return sb, nil
}

func (sb *FsSuper) WriteSuper(d disk.Disk) error {
	if err := d.Write(SUPERBLK, sb.Encode()); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

func (sb *FsSuper) String() string {
	return fmt.Sprintf("{bsize %d ninodes %d isize %d free %d nblocks %d id %s}",
		sb.BlockSize, sb.NInodes, sb.InodeSize, sb.FreeBlocks, sb.NBlocks, sb.Id)
}
