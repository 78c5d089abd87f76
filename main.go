// Command gieditor reads and writes Juno-Gi parameters over MIDI SysEx.
//
// Usage:
//
//	gieditor [flags] <command> [args]
//
//	gieditor describe 0x10001004
//	gieditor get 0x10000011
//	gieditor set 0x01000000 1
//	gieditor copy 0x10000800 chorus.toml Live Set
//	gieditor paste chorus.toml 0x18000400 Studio Set
//	gieditor copy 0x10000000 liveset.toml
//	gieditor layer liveset.toml 0x18000000 2 3
//	gieditor -simulate shell
//	gieditor mcp
//
// The optional class of copy, paste and fetch names the group whose member
// holding the address is used; the default is the top-level block, such as
// the whole Temporary Live Set.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"gieditor/internal/config"
)

var (
	configFile = flag.String("config", "", "Configuration file path")
	simulate   = flag.Bool("simulate", false, "Talk to an in-memory device instead of MIDI ports")
	logLevel   = flag.String("log-level", "", "Log line format: debug adds file:line, info adds microseconds, warn and error print the time only (overrides config)")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg, err = withLogLevel(cfg, *logLevel); err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}
	setupLogging(cfg.LogLevel)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	sess, closer, err := openSession(cfg, *simulate)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}
	defer closer()

	c := &commander{sess: sess, cfg: cfg, out: os.Stdout}
	switch args[0] {
	case "shell":
		if err := runShell(c); err != nil {
			log.Fatalf("shell: %v", err)
		}
	case "mcp":
		runMCP(sess, cfg)
	default:
		if err := c.run(args); err != nil {
			closer()
			log.Fatalf("%s: %v", args[0], err)
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gieditor [flags] <command> [args]

Commands:
  describe <addr>                     name and path of a parameter
  get <addr>                          read a parameter
  set <addr> <value>                  write a parameter
  adjust <addr> <delta>               add delta to a parameter
  fetch <addr> [class]                read every value of a block
  names                               list user patch names
  copy <addr> <file> [class]          save a block to a copy file (class
                                      defaults to the top-level block)
  paste <file> <addr> [class]         write a copy file to a block
  layer <file> <addr> <layer> <part>  write a live set layer to a studio part
  monitor [n]                         print inbound SysEx frames
  node <button>|view|delta <n>        send a control node command
  status                              transport counters
  shell                               interactive shell
  mcp                                 serve MCP over stdio

Examples:
`)
	for _, ex := range examples {
		fmt.Fprintf(os.Stderr, "  gieditor %s\n", ex)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

// examples are printed by usage; each runs against the simulator as is.
var examples = []string{
	"describe 0x10001004",
	"get 0x10000011",
	"set 0x01000000 1",
	"copy 0x10000800 chorus.toml Live Set",
	"paste chorus.toml 0x18000400 Studio Set",
	"copy 0x10000000 liveset.toml",
	"layer liveset.toml 0x18000000 2 3",
}

// withLogLevel applies a non-empty override and revalidates.
func withLogLevel(cfg config.Config, level string) (config.Config, error) {
	if level == "" {
		return cfg, nil
	}
	cfg.LogLevel = level
	return cfg, cfg.Validate()
}

// setupLogging selects the log line format. Every level prints the same
// lines; debug also turns on per-block transfer logging.
func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}
