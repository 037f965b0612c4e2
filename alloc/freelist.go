package alloc

import (
	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
)

// Free-list blocks are read as N = BlockSize/4 slots numbered from 1.
const (
	LinkSlot       uint64 = 1
	FirstSpareSlot uint64 = 2
)

func slot(b *buf.Buf, k uint64) common.Bnum {
	return b.BnumGet(k - 1)
}

func setSlot(b *buf.Buf, k uint64, v common.Bnum) {
	b.BnumPut(k-1, v)
}

func SlotCount(b *buf.Buf) uint64 {
	return b.NSlots()
}

// IsFull reports whether every slot, link included, is non-zero.
func IsFull(b *buf.Buf) bool {
	_, ok := FirstZeroSlot(b)
	return !ok
}

// FirstZeroSlot returns the first zero slot, or false if there is none.
func FirstZeroSlot(b *buf.Buf) (uint64, bool) {
	return firstZeroFrom(b, LinkSlot)
}

func firstZeroFrom(b *buf.Buf, start uint64) (uint64, bool) {
	n := SlotCount(b)
	for k := start; k <= n; k++ {
		if slot(b, k) == common.NULLBNUM {
			return k, true
		}
	}
	return 0, false
}

// HasSpareBeyondLink reports whether any of slots 2..N is non-zero.
func HasSpareBeyondLink(b *buf.Buf) bool {
	_, ok := firstSpare(b)
	return ok
}

func firstSpare(b *buf.Buf) (uint64, bool) {
	n := SlotCount(b)
	for k := FirstSpareSlot; k <= n; k++ {
		if slot(b, k) != common.NULLBNUM {
			return k, true
		}
	}
	return 0, false
}

// takeSpare removes slot k and packs the remaining non-zero spares into
// slots 2.. in order, zeroing the rest. The link in slot 1 is never moved.
func takeSpare(b *buf.Buf, k uint64) common.Bnum {
	bn := slot(b, k)
	n := SlotCount(b)
	next := FirstSpareSlot
	for i := FirstSpareSlot; i <= n; i++ {
		v := slot(b, i)
		if i == k || v == common.NULLBNUM {
			continue
		}
		setSlot(b, next, v)
		next++
	}
	for ; next <= n; next++ {
		setSlot(b, next, common.NULLBNUM)
	}
	return bn
}
