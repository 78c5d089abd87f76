package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/chzyer/readline"

	"gieditor/internal/editor"
)

const shellHelp = `
Commands:
  describe <addr>               name and path of a parameter
  get <addr>                    read a parameter
  set <addr> <value>            write a parameter
  adjust <addr> <delta>         add delta to a parameter
  fetch <addr> [class]          read every value of a block
  names                         list user patch names

  copy <addr> [class]           push a snapshot of a block
  paste <addr> [class]          write the top snapshot to a block
  layer <addr> <layer> <part>   write a live set layer to a studio part
  save <file> / load <file>     pop to / push from a copy file
  flush / depth                 empty / show the snapshot stack

  blacklist [clear]             list (or clear) unreachable addresses
  monitor [n]                   print inbound SysEx frames
  node <button>|view|delta <n>  send a control node command
  status                        transport counters
  quit                          leave the shell
`

func runShell(c *commander) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gieditor> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	log.SetOutput(rl.Stdout())
	sc := *c
	sc.out = rl.Stdout()
	sc.shell = true

	fmt.Fprint(sc.out, shellHelp)
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(sc.out, "Exiting...")
			return nil
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch strings.ToLower(args[0]) {
		case "help", "?":
			fmt.Fprint(sc.out, shellHelp)
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(sc.out, "Exiting...")
			return nil
		}

		if err := sc.run(args); err != nil {
			fmt.Fprintf(sc.out, "%s: %v\n", editor.Describe(err), err)
		}
	}
}
