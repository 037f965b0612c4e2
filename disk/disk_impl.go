package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/util"
)

func deviceErr(op string, a uint64, err error) error {
	return fmt.Errorf("%w: %s block %d: %v", common.ErrDevice, op, a, err)
}

func checkBlock(op string, a uint64, n uint64, b Block) error {
	if uint64(len(b)) != BlockSize {
		return deviceErr(op, a, fmt.Errorf("buffer is not block-sized (%d bytes)", len(b)))
	}
	if a >= n {
		return deviceErr(op, a, fmt.Errorf("out of bounds (disk has %d blocks)", n))
	}
	return nil
}

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd        int
	numBlocks uint64
}

// NewFileDisk opens (creating if needed) a disk image at path holding
// numBlocks blocks, resizing a regular file to match.
func NewFileDisk(path string, numBlocks uint64) (fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return fileDisk{}, deviceErr("open", 0, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return fileDisk{}, deviceErr("stat", 0, err)
	}
	if (stat.Mode&unix.S_IFREG) != 0 && uint64(stat.Size) != numBlocks*BlockSize {
		err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		if err != nil {
			unix.Close(fd)
			return fileDisk{}, deviceErr("truncate", 0, err)
		}
	}
	util.DPrintf(1, "NewFileDisk: %s with %d blocks\n", path, numBlocks)
	return fileDisk{fd, numBlocks}, nil
}

// OpenFileDisk opens an existing disk image, sized by the image itself.
func OpenFileDisk(path string) (fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return fileDisk{}, deviceErr("open", 0, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return fileDisk{}, deviceErr("stat", 0, err)
	}
	return fileDisk{fd, uint64(stat.Size) / BlockSize}, nil
}

func (d fileDisk) ReadTo(a uint64, buf Block) error {
	if err := checkBlock("read", a, d.numBlocks, buf); err != nil {
		return err
	}
	_, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return deviceErr("read", a, err)
	}
	util.DPrintf(20, "read: %d\n", a)
	return nil
}

func (d fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d fileDisk) Write(a uint64, v Block) error {
	if err := checkBlock("write", a, d.numBlocks, v); err != nil {
		return err
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return deviceErr("write", a, err)
	}
	util.DPrintf(20, "write: %d\n", a)
	return nil
}

func (d fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return deviceErr("sync", 0, err)
	}
	util.DPrintf(20, "barrier\n")
	return nil
}

func (d fileDisk) Close() error {
	err := unix.Close(d.fd)
	if err != nil {
		return deviceErr("close", 0, err)
	}
	return nil
}

var _ Disk = (*memDisk)(nil)

type memDisk struct {
	l      *sync.RWMutex
	blocks [][BlockSize]byte
}

func NewMemDisk(numBlocks uint64) memDisk {
	blocks := make([][BlockSize]byte, numBlocks)
	return memDisk{l: new(sync.RWMutex), blocks: blocks}
}

func (d memDisk) ReadTo(a uint64, buf Block) error {
	d.l.RLock()
	defer d.l.RUnlock()
	if err := checkBlock("read", a, uint64(len(d.blocks)), buf); err != nil {
		return err
	}
	copy(buf, d.blocks[a][:])
	return nil
}

func (d memDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d memDisk) Write(a uint64, v Block) error {
	d.l.Lock()
	defer d.l.Unlock()
	if err := checkBlock("write", a, uint64(len(d.blocks)), v); err != nil {
		return err
	}
	copy(d.blocks[a][:], v)
	return nil
}

func (d memDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d memDisk) Barrier() error { return nil }

func (d memDisk) Close() error { return nil }
