package common

import (
	"errors"
)

const (
	NDIRECT uint64 = 16 // direct block ids per inode
	SLOTSZ  uint64 = 4  // on-disk size of a block id in indirect and free-list blocks

	// encoded inode: inum, kind, nlink, nblocks, size, mtime, direct and
	// three indirect ids, 8 bytes each
	MININODESZ uint64 = 8 * (6 + NDIRECT + 3)

	PATHSEP = '/'
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

// Error kinds returned by every layer. Callers match them with errors.Is;
// the returned errors wrap these with context.
var (
	ErrNotFound  = errors.New("not found")
	ErrExhausted = errors.New("exhausted")
	ErrInvalid   = errors.New("invalid argument")
	ErrDevice    = errors.New("device failure")
)
