// buf holds one disk block in memory, tagged with the block number it was
// read from or will be written to.
//
// There is no cache: a Buf is owned by whoever read it, and callers re-read
// a block before every read-modify-write.
package buf

import (
	"github.com/tchajed/goose/machine"

	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/util"
)

type Buf struct {
	Blkno common.Bnum
	Blk   disk.Block
}

// MkBuf returns a zero-filled block destined for blkno
func MkBuf(blkno common.Bnum) *Buf {
	return &Buf{
		Blkno: blkno,
		Blk:   make(disk.Block, disk.BlockSize),
	}
}

func ReadBuf(d disk.Disk, blkno common.Bnum) (*Buf, error) {
	blk, err := d.Read(blkno)
	if err != nil {
		return nil, err
	}
	util.DPrintf(15, "ReadBuf: %d\n", blkno)
	return &Buf{Blkno: blkno, Blk: blk}, nil
}

func (buf *Buf) Write(d disk.Disk) error {
	util.DPrintf(15, "Write: %d\n", buf.Blkno)
	return d.Write(buf.Blkno, buf.Blk)
}

// WriteTo writes the contents of buf to another block number
func (buf *Buf) WriteTo(d disk.Disk, blkno common.Bnum) error {
	util.DPrintf(15, "WriteTo: %d -> %d\n", buf.Blkno, blkno)
	return d.Write(blkno, buf.Blk)
}

// NSlots is the number of block ids a block holds when read as an id array.
func (buf *Buf) NSlots() uint64 {
	return uint64(len(buf.Blk)) / common.SLOTSZ
}

// BnumGet returns the block id in slot i, counting from 0
func (buf *Buf) BnumGet(i uint64) common.Bnum {
	off := i * common.SLOTSZ
	return common.Bnum(machine.UInt32Get(buf.Blk[off : off+common.SLOTSZ]))
}

func (buf *Buf) BnumPut(i uint64, v common.Bnum) {
	if v > 0xffffffff {
		panic("BnumPut: block number does not fit in a slot")
	}
	off := i * common.SLOTSZ
	machine.UInt32Put(buf.Blk[off:off+common.SLOTSZ], uint32(v))
}

func (buf *Buf) Zero() {
	for i := range buf.Blk {
		buf.Blk[i] = 0
	}
}

func (buf *Buf) IsZero() bool {
	return util.IsZero(buf.Blk)
}

