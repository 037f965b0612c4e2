package main

import (
	"fmt"
	"io"

	"github.com/mit-pdos/go-ufs/fsck"
	"github.com/mit-pdos/go-ufs/inode"
	"github.com/mit-pdos/go-ufs/ufs"
)

// printer is satisfied by *ishell.Context and by writerPrinter.
type printer interface {
	Printf(format string, val ...interface{})
}

type writerPrinter struct {
	w io.Writer
}

func (p writerPrinter) Printf(format string, val ...interface{}) {
	fmt.Fprintf(p.w, format, val...)
}

// op is one file system command, shared by the command line and the shell.
type op struct {
	name      string
	usage     string
	argsUsage string
	nargs     int
	run       func(p printer, fs *ufs.Fs, args []string) error
}

var ops = []op{{
	name:  "super",
	usage: "print the superblock",
	run: func(p printer, fs *ufs.Fs, args []string) error {
		sb := fs.Super()
		p.Printf("%v\n", sb)
		p.Printf("inode blocks %d, first data block %d, %d inodes per block\n",
			sb.InodeBlocks(), sb.FirstDataBlock(), sb.InodesPerBlock())
		return nil
	},
}, {
	name:      "namei",
	usage:     "print the inode number a path names",
	argsUsage: "PATH",
	nargs:     1,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		inum, err := fs.Namei(args[0])
		if err != nil {
			return err
		}
		p.Printf("%d\n", inum)
		return nil
	},
}, {
	name:      "stat",
	usage:     "print the inode a path names",
	argsUsage: "PATH",
	nargs:     1,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		inum, err := fs.Namei(args[0])
		if err != nil {
			return err
		}
		ip, err := fs.Stat(inum)
		if err != nil {
			return err
		}
		p.Printf("%v\n", ip)
		tr := fs.Table().Translator()
		for lbn := uint64(0); lbn < ip.NBlocks; lbn++ {
			bn, err := tr.Bmap(ip, lbn)
			if err != nil {
				return err
			}
			p.Printf("  %d -> %d\n", lbn, bn)
		}
		return nil
	},
}, {
	name:      "ls",
	usage:     "list a directory",
	argsUsage: "PATH",
	nargs:     1,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		ents, err := fs.ReadDir(args[0])
		if err != nil {
			return err
		}
		for _, de := range ents {
			ip, err := fs.Stat(de.Inum)
			if err != nil {
				return err
			}
			p.Printf("%6d %-4v %3d %8d %s\n", de.Inum, ip.Kind, ip.Nlink, ip.Size, de.Name)
		}
		return nil
	},
}, {
	name:      "mkdir",
	usage:     "create a directory",
	argsUsage: "PATH",
	nargs:     1,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		_, err := fs.Create(args[0], inode.KindDir)
		return err
	},
}, {
	name:      "touch",
	usage:     "create an empty file",
	argsUsage: "PATH",
	nargs:     1,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		_, err := fs.Create(args[0], inode.KindFile)
		return err
	},
}, {
	name:      "ln",
	usage:     "give a file another name",
	argsUsage: "OLD NEW",
	nargs:     2,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		return fs.Link(args[0], args[1])
	},
}, {
	name:      "rm",
	usage:     "remove a file or an empty directory",
	argsUsage: "PATH",
	nargs:     1,
	run: func(p printer, fs *ufs.Fs, args []string) error {
		return fs.Remove(args[0])
	},
}, {
	name:  "fsck",
	usage: "check the file system for inconsistencies",
	run: func(p printer, fs *ufs.Fs, args []string) error {
		r, err := fsck.Check(fs)
		if err != nil {
			return err
		}
		p.Printf("%v", r)
		if !r.Ok() {
			return fmt.Errorf("fsck: %d problems", len(r.Problems))
		}
		return nil
	},
}}

func (o *op) check(args []string) error {
	if len(args) != o.nargs {
		return fmt.Errorf("usage: %s %s", o.name, o.argsUsage)
	}
	return nil
}
