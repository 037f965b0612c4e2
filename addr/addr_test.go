package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocateSmall(t *testing.T) {
	assert := assert.New(t)
	const l = 4

	p, ok := Locate(0, l)
	assert.True(ok)
	assert.Equal(Pos{Tier: Direct}, p)

	p, _ = Locate(15, l)
	assert.Equal(Pos{Tier: Direct, Idx: [3]uint64{15, 0, 0}}, p)

	p, _ = Locate(16, l)
	assert.Equal(Pos{Tier: Single, Idx: [3]uint64{0, 0, 0}}, p)

	p, _ = Locate(19, l)
	assert.Equal(Pos{Tier: Single, Idx: [3]uint64{3, 0, 0}}, p)

	p, _ = Locate(20, l)
	assert.Equal(Pos{Tier: Double, Idx: [3]uint64{0, 0, 0}}, p)

	p, _ = Locate(20+4*1+3, l)
	assert.Equal(Pos{Tier: Double, Idx: [3]uint64{1, 3, 0}}, p)

	p, _ = Locate(20+16-1, l)
	assert.Equal(Pos{Tier: Double, Idx: [3]uint64{3, 3, 0}}, p)

	p, _ = Locate(36, l)
	assert.Equal(Pos{Tier: Triple, Idx: [3]uint64{0, 0, 0}}, p)

	p, _ = Locate(36+16*2+4*1+3, l)
	assert.Equal(Pos{Tier: Triple, Idx: [3]uint64{2, 1, 3}}, p)

	last := MaxBlocks(l) - 1
	p, ok = Locate(last, l)
	assert.True(ok)
	assert.Equal(Pos{Tier: Triple, Idx: [3]uint64{3, 3, 3}}, p)

	_, ok = Locate(last+1, l)
	assert.False(ok)
}

func TestLocateBoundaries(t *testing.T) {
	assert := assert.New(t)
	const l = 1024

	p, _ := Locate(16+l-1, l)
	assert.Equal(Single, p.Tier)
	assert.Equal(uint64(l-1), p.Idx[0])

	p, _ = Locate(16+l, l)
	assert.Equal(Double, p.Tier, "16+L is the first double-indirect block")
	assert.Equal([3]uint64{0, 0, 0}, p.Idx)

	p, _ = Locate(16+l+l*l, l)
	assert.Equal(Triple, p.Tier)
	assert.Equal([3]uint64{0, 0, 0}, p.Idx)
}

func TestLocateCoversEveryBlockOnce(t *testing.T) {
	const l = 3
	seen := make(map[Pos]bool)
	for lbn := uint64(0); lbn < MaxBlocks(l); lbn++ {
		p, ok := Locate(lbn, l)
		assert.True(t, ok)
		assert.False(t, seen[p], "lbn %d maps to %v twice", lbn, p)
		seen[p] = true
		for i := 0; i < p.Depth(); i++ {
			assert.Less(t, p.Idx[i], uint64(l))
		}
	}
}

func TestPosString(t *testing.T) {
	p := Pos{Tier: Double, Idx: [3]uint64{1, 2, 0}}
	assert.Equal(t, "double[1 2]", p.String())
	assert.Equal(t, "direct[5]", Pos{Tier: Direct, Idx: [3]uint64{5, 0, 0}}.String())
	assert.Equal(t, 0, Pos{Tier: Direct}.Depth())
}
