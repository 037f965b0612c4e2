package fsck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mit-pdos/go-ufs/buf"
	"github.com/mit-pdos/go-ufs/common"
	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/inode"
	"github.com/mit-pdos/go-ufs/ufs"
)

type FsckSuite struct {
	suite.Suite
	d  disk.Disk
	fs *ufs.Fs
}

func TestFsckSuite(t *testing.T) {
	suite.Run(t, new(FsckSuite))
}

func (suite *FsckSuite) SetupTest() {
	suite.d = disk.NewMemDisk(1100)
	fs, err := ufs.Mkfs(suite.d, ufs.Params{NInodes: 150, InodeSize: 256})
	suite.Require().NoError(err)
	suite.fs = fs
}

func (suite *FsckSuite) check() *Report {
	r, err := Check(suite.fs)
	suite.Require().NoError(err)
	return r
}

func (suite *FsckSuite) hasProblem(r *Report, substr string) {
	for _, p := range r.Problems {
		if strings.Contains(p, substr) {
			return
		}
	}
	suite.Failf("missing problem", "%q not in %v", substr, r.Problems)
}

func (suite *FsckSuite) create(path string, kind inode.Kind) *inode.Inode {
	inum, err := suite.fs.Create(path, kind)
	suite.Require().NoError(err)
	ip, err := suite.fs.Stat(inum)
	suite.Require().NoError(err)
	return ip
}

func (suite *FsckSuite) grow(ip *inode.Inode, n uint64) {
	suite.Require().NoError(suite.fs.Table().Translator().Grow(ip, n))
	suite.Require().NoError(suite.fs.Table().Put(ip))
}

func (suite *FsckSuite) TestFresh() {
	r := suite.check()
	suite.True(r.Ok(), r.String())
	suite.Equal(uint64(1100-12), r.FreeCounted)
	suite.Equal(r.FreeRecorded, r.FreeCounted)
	suite.Equal(uint64(1), r.Inodes)
	suite.Equal(uint64(0), r.Mapped)
}

func (suite *FsckSuite) TestAfterWork() {
	suite.create("/a", inode.KindDir)
	f := suite.create("/a/f", inode.KindFile)
	suite.grow(f, common.NDIRECT+3)
	suite.create("/g", inode.KindFile)
	suite.Require().NoError(suite.fs.Remove("/g"))

	r := suite.check()
	suite.True(r.Ok(), r.String())
	suite.Equal(uint64(3), r.Inodes)
	// root and /a directory blocks, file data and its single root
	suite.Equal(uint64(2+common.NDIRECT+3+1), r.Mapped)
	suite.Equal(uint64(0), r.Leaked)
}

func (suite *FsckSuite) TestCountMismatch() {
	suite.fs.Super().FreeBlocks++
	r := suite.check()
	suite.False(r.Ok())
	suite.hasProblem(r, "superblock counts")
}

func (suite *FsckSuite) TestFreeAndMapped() {
	f := suite.create("/f", inode.KindFile)
	suite.grow(f, 2)
	suite.Require().NoError(suite.fs.Alloc().FreeNum(f.Direct[1]))

	r := suite.check()
	suite.hasProblem(r, "is also free")
}

func (suite *FsckSuite) TestMappedTwice() {
	f := suite.create("/f", inode.KindFile)
	g := suite.create("/g", inode.KindFile)
	suite.grow(f, 1)
	g.Direct[0] = f.Direct[0]
	g.NBlocks = 1
	suite.Require().NoError(suite.fs.Table().Put(g))

	r := suite.check()
	suite.hasProblem(r, "used by inodes")
}

func (suite *FsckSuite) TestLeak() {
	_, err := suite.fs.Alloc().AllocNum()
	suite.Require().NoError(err)
	r := suite.check()
	suite.Equal(uint64(1), r.Leaked)
	suite.hasProblem(r, "neither free nor in use")
}

func (suite *FsckSuite) TestDanglingEntry() {
	f := suite.create("/f", inode.KindFile)
	f.Nlink = 0
	suite.Require().NoError(suite.fs.Table().Free(f))

	r := suite.check()
	suite.hasProblem(r, "names free inode")
}

func (suite *FsckSuite) TestLinkCount() {
	f := suite.create("/f", inode.KindFile)
	f.Nlink = 3
	suite.Require().NoError(suite.fs.Table().Put(f))

	r := suite.check()
	suite.hasProblem(r, "has 3 links but 1 directory entries")
}

func (suite *FsckSuite) TestFreeListLoop() {
	root, err := buf.ReadBuf(suite.d, suite.fs.Alloc().Root())
	suite.Require().NoError(err)
	link := root.BnumGet(0)
	suite.Require().NotEqual(common.NULLBNUM, link)

	b, err := buf.ReadBuf(suite.d, link)
	suite.Require().NoError(err)
	b.BnumPut(0, link)
	suite.Require().NoError(b.Write(suite.d))

	r := suite.check()
	suite.hasProblem(r, "on the free list twice")
}
