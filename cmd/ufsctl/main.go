package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-ufs/disk"
	"github.com/mit-pdos/go-ufs/ufs"
	"github.com/mit-pdos/go-ufs/util"
)

func openFs(c *Config) (*ufs.Fs, error) {
	d, err := disk.OpenFileDisk(c.Image)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.Image, err)
	}
	fs, err := ufs.Mount(d)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("mounting %s: %w", c.Image, err)
	}
	return fs, nil
}

func withFs(c *Config, f func(fs *ufs.Fs, ctx *cli.Context) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		fs, err := openFs(c)
		if err != nil {
			return err
		}
		if err := f(fs, ctx); err != nil {
			fs.Close()
			return err
		}
		return fs.Close()
	}
}

func opCommand(c *Config, o *op) *cli.Command {
	return &cli.Command{
		Name:      o.name,
		Usage:     o.usage,
		ArgsUsage: o.argsUsage,
		Action: withFs(c, func(fs *ufs.Fs, ctx *cli.Context) error {
			args := ctx.Args().Slice()
			if err := o.check(args); err != nil {
				return err
			}
			return o.run(writerPrinter{ctx.App.Writer}, fs, args)
		}),
	}
}

func mkfsCommand(c *Config) *cli.Command {
	return &cli.Command{
		Name:  "mkfs",
		Usage: "format the image",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "blocks", Usage: "image size in blocks"},
			&cli.UintFlag{Name: "inodes", Usage: "number of inodes"},
			&cli.UintFlag{Name: "inode-size", Usage: "bytes per inode record"},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.IsSet("blocks") {
				c.Blocks = ctx.Uint64("blocks")
			}
			if ctx.IsSet("inodes") {
				c.Inodes = uint16(ctx.Uint("inodes"))
			}
			if ctx.IsSet("inode-size") {
				c.InodeSize = uint16(ctx.Uint("inode-size"))
			}
			d, err := disk.NewFileDisk(c.Image, c.Blocks)
			if err != nil {
				return fmt.Errorf("creating %s: %w", c.Image, err)
			}
			fs, err := ufs.Mkfs(d, c.Params())
			if err != nil {
				d.Close()
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%v\n", fs.Super())
			return fs.Close()
		},
	}
}

func shellCommand(c *Config) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "interactive shell over the image",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mem", Usage: "use a scratch in-memory disk instead of the image"},
		},
		Action: func(ctx *cli.Context) error {
			if !ctx.Bool("mem") {
				return withFs(c, func(fs *ufs.Fs, ctx *cli.Context) error {
					return runShell(fs)
				})(ctx)
			}
			fs, err := ufs.Mkfs(disk.NewGooseMemDisk(c.Blocks), c.Params())
			if err != nil {
				return err
			}
			return runShell(fs)
		},
	}
}

func newApp(c *Config) *cli.App {
	app := &cli.App{
		Name:  appName,
		Usage: "inspect and modify ufs disk images",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "disk image path"},
			&cli.Uint64Flag{Name: "debug", Usage: "trace level"},
		},
		Before: func(ctx *cli.Context) error {
			loaded, err := LoadConfig()
			if err != nil {
				return err
			}
			*c = *loaded
			if ctx.IsSet("image") {
				c.Image = ctx.String("image")
			}
			if ctx.IsSet("debug") {
				c.Debug = ctx.Uint64("debug")
			}
			util.Debug = c.Debug
			return c.Validate()
		},
		Commands: []*cli.Command{mkfsCommand(c), shellCommand(c)},
	}
	for i := range ops {
		app.Commands = append(app.Commands, opCommand(c, &ops[i]))
	}
	return app
}

func main() {
	var c Config
	if err := newApp(&c).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
