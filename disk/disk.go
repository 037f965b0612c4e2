// Package disk is the block device boundary: fixed-size blocks addressed
// by number, backed by memory, an image file or a goose disk.
package disk

type Block = []byte

const BlockSize uint64 = 4096

// Disk is a device of Size() blocks of BlockSize bytes each.
//
// Every failure, including an out-of-range block number or a buffer of the
// wrong length, is an error wrapping common.ErrDevice. Nothing above this
// layer retries.
type Disk interface {
	// Read returns a fresh copy of block a.
	Read(a uint64) (Block, error)

	// ReadTo fills b with block a.
	ReadTo(a uint64, b Block) error

	// Write replaces block a with v. The disk does not keep v.
	Write(a uint64, v Block) error

	Size() (uint64, error)

	// Barrier returns once every earlier Write is durable.
	Barrier() error

	// Close releases the device. It is unusable afterwards.
	Close() error
}
