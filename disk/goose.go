package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-ufs/util"
)

var _ Disk = (*gooseDisk)(nil)

// gooseDisk adapts a goose machine disk, which panics on misuse, to Disk.
type gooseDisk struct {
	d gdisk.Disk
}

func NewGooseDisk(d gdisk.Disk) Disk {
	if gdisk.BlockSize != BlockSize {
		panic("goose block size mismatch")
	}
	return gooseDisk{d: d}
}

// NewGooseMemDisk is a goose in-memory disk of numBlocks blocks.
func NewGooseMemDisk(numBlocks uint64) Disk {
	return NewGooseDisk(gdisk.NewMemDisk(numBlocks))
}

func recoverDevice(op string, a uint64, err *error) {
	if r := recover(); r != nil {
		*err = deviceErr(op, a, fmt.Errorf("%v", r))
	}
}

func (g gooseDisk) ReadTo(a uint64, buf Block) (err error) {
	defer recoverDevice("read", a, &err)
	n := g.d.Size()
	if err := checkBlock("read", a, n, buf); err != nil {
		return err
	}
	copy(buf, g.d.Read(a))
	return nil
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := g.ReadTo(a, buf)
	return buf, err
}

func (g gooseDisk) Write(a uint64, v Block) (err error) {
	defer recoverDevice("write", a, &err)
	n := g.d.Size()
	if err := checkBlock("write", a, n, v); err != nil {
		return err
	}
	// the goose disk may retain v
	g.d.Write(a, util.CloneByteSlice(v))
	return nil
}

func (g gooseDisk) Size() (uint64, error) {
	return g.d.Size(), nil
}

func (g gooseDisk) Barrier() (err error) {
	defer recoverDevice("sync", 0, &err)
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() (err error) {
	defer recoverDevice("close", 0, &err)
	g.d.Close()
	return nil
}
