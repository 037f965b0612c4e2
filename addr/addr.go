package addr

import (
	"fmt"

	"github.com/mit-pdos/go-ufs/common"
)

// Tier says how a logical block of a file is reached from its inode.
type Tier uint8

const (
	Direct Tier = iota
	Single
	Double
	Triple
)

func (t Tier) String() string {
	switch t {
	case Direct:
		return "direct"
	case Single:
		return "single"
	case Double:
		return "double"
	case Triple:
		return "triple"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Depth is the number of indirection blocks between an inode and a data
// block in tier t.
func (t Tier) Depth() int {
	return int(t)
}

// Pos locates a logical block. For Direct, Idx[0] indexes the inode's direct
// array. For the indirect tiers, Idx[0:Depth()] are the entry indices to
// follow from the tier's root indirection block down to the data block.
type Pos struct {
	Tier Tier
	Idx  [3]uint64
}

// Depth is the number of indirection blocks read to reach the data block.
func (p Pos) Depth() int {
	return p.Tier.Depth()
}

func (p Pos) String() string {
	if p.Tier == Direct {
		return fmt.Sprintf("%v[%d]", p.Tier, p.Idx[0])
	}
	return fmt.Sprintf("%v%v", p.Tier, p.Idx[:p.Depth()])
}

// MaxBlocks is the largest logical block count an inode can map with l
// entries per indirection block.
func MaxBlocks(l uint64) uint64 {
	return common.NDIRECT + l + l*l + l*l*l
}

// Locate maps logical block lbn to its tier and residual indices, with l
// entries per indirection block. It returns false past the triple tier.
func Locate(lbn uint64, l uint64) (Pos, bool) {
	if lbn < common.NDIRECT {
		return Pos{Tier: Direct, Idx: [3]uint64{lbn, 0, 0}}, true
	}
	r := lbn - common.NDIRECT
	if r < l {
		return Pos{Tier: Single, Idx: [3]uint64{r, 0, 0}}, true
	}
	r -= l
	if r < l*l {
		return Pos{Tier: Double, Idx: [3]uint64{r / l, r % l, 0}}, true
	}
	r -= l * l
	if r < l*l*l {
		return Pos{Tier: Triple, Idx: [3]uint64{r / (l * l), (r / l) % l, r % l}}, true
	}
	return Pos{}, false
}
