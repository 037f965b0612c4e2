package main

import (
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/mit-pdos/go-ufs/ufs"
)

func newShell(fs *ufs.Fs) *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt("ufs> ")
	for i := range ops {
		o := &ops[i]
		shell.AddCmd(&ishell.Cmd{
			Name: o.name,
			Help: strings.TrimSpace(o.usage + " " + o.argsUsage),
			Func: func(c *ishell.Context) {
				if err := o.check(c.Args); err != nil {
					c.Println(err)
					return
				}
				if err := o.run(c, fs, c.Args); err != nil {
					c.Println(err)
				}
			},
		})
	}
	return shell
}

// runShell reads commands until exit and syncs the file system afterwards.
func runShell(fs *ufs.Fs) error {
	shell := newShell(fs)
	shell.Println("ufs shell, volume", fs.Super().Id)
	shell.Run()
	return fs.Sync()
}
