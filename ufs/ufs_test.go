package ufs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/dir"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/inode"
	"github.com/mit-pdos/go-ufs/super"
)

const nblocks = 1100

var params = Params{NInodes: 150, InodeSize: 256}

func TestMkfsBadParams(t *testing.T) {
	for _, p := range []Params{
		{NInodes: 0, InodeSize: 256},
		{NInodes: 150, InodeSize: 100},
		{NInodes: 150, InodeSize: 300},
		{NBlocks: nblocks + 1, NInodes: 150, InodeSize: 256},
		{NBlocks: 11, NInodes: 150, InodeSize: 256},
	} {
		_, err := Mkfs(disk.NewMemDisk(nblocks), p)
		assert.True(t, errors.Is(err, common.ErrInvalid), "%+v: %v", p, err)
	}
}

func TestMountUnformatted(t *testing.T) {
	_, err := Mount(disk.NewMemDisk(nblocks))
	assert.True(t, errors.Is(err, common.ErrInvalid))
}

func TestMkfsGooseDisk(t *testing.T) {
	d := disk.NewGooseMemDisk(nblocks)
	fs, err := Mkfs(d, params)
	assert.NoError(t, err)
	assert.Equal(t, uint64(nblocks-12), fs.Super().FreeBlocks)
	_, err = Mount(d)
	assert.NoError(t, err)
}

type UfsSuite struct {
	suite.Suite
	d  disk.Disk
	fs *Fs
}

func TestUfsSuite(t *testing.T) {
	suite.Run(t, new(UfsSuite))
}

func (suite *UfsSuite) SetupTest() {
	suite.d = disk.NewMemDisk(nblocks)
	fs, err := Mkfs(suite.d, params)
	suite.Require().NoError(err)
	suite.fs = fs
}

func (suite *UfsSuite) isErr(err error, target error) {
	suite.Require().Error(err)
	suite.True(errors.Is(err, target), "%v is not %v", err, target)
}

func (suite *UfsSuite) create(path string, kind inode.Kind) common.Inum {
	inum, err := suite.fs.Create(path, kind)
	suite.Require().NoError(err, path)
	return inum
}

func (suite *UfsSuite) TestMkfs() {
	sb := suite.fs.Super()
	suite.Equal(common.Bnum(11), sb.FirstDataBlock())
	suite.Equal(uint64(nblocks-12), sb.FreeBlocks)

	root, err := suite.fs.Stat(common.ROOTINUM)
	suite.Require().NoError(err)
	suite.True(root.IsDir())
	suite.Equal(uint64(0), root.NBlocks)

	ents, err := suite.fs.ReadDir("/")
	suite.Require().NoError(err)
	suite.Len(ents, 0)
}

func (suite *UfsSuite) TestMountReadsSuper() {
	fs, err := Mount(suite.d)
	suite.Require().NoError(err)
	suite.Equal(suite.fs.Super(), fs.Super())
}

func (suite *UfsSuite) TestCreateNamei() {
	a := suite.create("/a", inode.KindDir)
	b := suite.create("/a/b", inode.KindFile)
	suite.Equal(common.Inum(2), a)
	suite.Equal(common.Inum(3), b)

	inum, err := suite.fs.Namei("/a/b")
	suite.Require().NoError(err)
	suite.Equal(b, inum)

	ents, err := suite.fs.ReadDir("/a")
	suite.Require().NoError(err)
	suite.Equal([]dir.DirEnt{{Name: "b", Inum: b}}, ents)

	_, err = suite.fs.Namei("/a/x")
	suite.isErr(err, common.ErrNotFound)
	_, err = suite.fs.Namei("bad")
	suite.isErr(err, common.ErrInvalid)
}

func (suite *UfsSuite) TestCreateErrors() {
	suite.create("/a", inode.KindDir)
	suite.create("/f", inode.KindFile)

	_, err := suite.fs.Create("/a", inode.KindFile)
	suite.isErr(err, common.ErrInvalid)
	_, err = suite.fs.Create("/missing/f", inode.KindFile)
	suite.isErr(err, common.ErrNotFound)
	_, err = suite.fs.Create("/f/g", inode.KindFile)
	suite.isErr(err, common.ErrNotFound)
	_, err = suite.fs.Create("/averyveryverylongnamethatcannotfitinanentry", inode.KindFile)
	suite.isErr(err, common.ErrInvalid)
	_, err = suite.fs.Create("/", inode.KindDir)
	suite.isErr(err, common.ErrInvalid)
	_, err = suite.fs.Create("/free", inode.KindFree)
	suite.isErr(err, common.ErrInvalid)

	_, err = suite.fs.ReadDir("/f")
	suite.isErr(err, common.ErrInvalid)
}

func (suite *UfsSuite) TestDirectoryGrows() {
	free := suite.fs.Alloc().NumFree()
	n := int(dir.NDIRENTS) + 1
	for i := 0; i < n; i++ {
		suite.create(fmt.Sprintf("/f%d", i), inode.KindFile)
	}
	root, err := suite.fs.Stat(common.ROOTINUM)
	suite.Require().NoError(err)
	suite.Equal(uint64(2), root.NBlocks)
	suite.Equal(2*disk.BlockSize, root.Size)
	suite.Equal(free-2, suite.fs.Alloc().NumFree())

	last, err := suite.fs.Namei(fmt.Sprintf("/f%d", n-1))
	suite.Require().NoError(err)
	suite.Equal(common.Inum(n+1), last)

	ents, err := suite.fs.ReadDir("/")
	suite.Require().NoError(err)
	suite.Len(ents, n)
}

func (suite *UfsSuite) TestInodesExhausted() {
	fs, err := Mkfs(disk.NewMemDisk(100), Params{NInodes: 16, InodeSize: 256})
	suite.Require().NoError(err)
	for i := 0; i < 15; i++ {
		_, err := fs.Create(fmt.Sprintf("/f%d", i), inode.KindFile)
		suite.Require().NoError(err)
	}
	_, err = fs.Create("/one-too-many", inode.KindFile)
	suite.isErr(err, common.ErrExhausted)
	_, err = fs.Namei("/one-too-many")
	suite.isErr(err, common.ErrNotFound)
}

func (suite *UfsSuite) TestRemove() {
	free := suite.fs.Alloc().NumFree()
	suite.create("/a", inode.KindDir)
	f := suite.create("/a/f", inode.KindFile)

	suite.isErr(suite.fs.Remove("/a"), common.ErrInvalid)
	suite.isErr(suite.fs.Remove("/"), common.ErrInvalid)
	suite.isErr(suite.fs.Remove("/a/nothing"), common.ErrNotFound)

	suite.Require().NoError(suite.fs.Remove("/a/f"))
	_, err := suite.fs.Namei("/a/f")
	suite.isErr(err, common.ErrNotFound)
	_, err = suite.fs.Stat(f)
	suite.isErr(err, common.ErrNotFound)

	suite.Require().NoError(suite.fs.Remove("/a"))
	// / keeps its directory block; the block of /a came back
	suite.Equal(free-1, suite.fs.Alloc().NumFree())

	suite.Equal(common.Inum(2), suite.create("/b", inode.KindFile))
}

func (suite *UfsSuite) TestLink() {
	f := suite.create("/f", inode.KindFile)
	suite.create("/d", inode.KindDir)
	suite.Require().NoError(suite.fs.Link("/f", "/d/g"))

	ip, err := suite.fs.Stat(f)
	suite.Require().NoError(err)
	suite.Equal(uint64(2), ip.Nlink)

	suite.isErr(suite.fs.Link("/d", "/e"), common.ErrInvalid)
	suite.isErr(suite.fs.Link("/f", "/d/g"), common.ErrInvalid)

	suite.Require().NoError(suite.fs.Remove("/f"))
	inum, err := suite.fs.Namei("/d/g")
	suite.Require().NoError(err)
	suite.Equal(f, inum)
	ip, err = suite.fs.Stat(f)
	suite.Require().NoError(err)
	suite.Equal(uint64(1), ip.Nlink)

	suite.Require().NoError(suite.fs.Remove("/d/g"))
	_, err = suite.fs.Stat(f)
	suite.isErr(err, common.ErrNotFound)
}

func (suite *UfsSuite) TestPersists() {
	suite.create("/a", inode.KindDir)
	b := suite.create("/a/b", inode.KindFile)
	free := suite.fs.Alloc().NumFree()
	suite.Require().NoError(suite.fs.Close())

	fs, err := Mount(suite.d)
	suite.Require().NoError(err)
	inum, err := fs.Namei("/a/b")
	suite.Require().NoError(err)
	suite.Equal(b, inum)
	suite.Equal(free, fs.Alloc().NumFree())

	sb, err := super.ReadSuper(suite.d)
	suite.Require().NoError(err)
	suite.Equal(free, sb.FreeBlocks)
}
