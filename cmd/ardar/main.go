// Command ardar is the CLI front end: run/compile/disasm/repl over the
// lexer -> parser -> compiler -> vm pipeline.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/ardar-lang/ardar/builtins"
	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/codec"
	"github.com/ardar-lang/ardar/compiler"
	"github.com/ardar-lang/ardar/internal/config"
	"github.com/ardar-lang/ardar/parser"
	"github.com/ardar-lang/ardar/version"
	"github.com/ardar-lang/ardar/vm"
)

func main() {
	app := &cli.Command{
		Name:  "ardar",
		Usage: "compiler and VM for the ardar scripting language",
		Commands: []*cli.Command{
			runCommand,
			compileCommand,
			disasmCommand,
			replCommand,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "version", Aliases: []string{"v"}, Usage: "show version"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				fmt.Println(version.Version())
				return nil
			}
			return cli.ShowAppHelp(cmd)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ardar: %v\n", err)
		os.Exit(1)
	}
}

var maxCallDepthFlag = &cli.IntFlag{Name: "max-call-depth", Usage: "VM call stack depth limit"}
var maxRegistersFlag = &cli.IntFlag{Name: "max-registers", Usage: "per-frame register file size limit"}
var queueCapacityFlag = &cli.IntFlag{Name: "queue-capacity", Usage: "event loop pending macrotask limit"}

func configFromFlags(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if v := cmd.Int("max-call-depth"); v > 0 {
		cfg.MaxCallDepth = int(v)
	}
	if v := cmd.Int("max-registers"); v > 0 {
		cfg.MaxRegisters = int(v)
	}
	if v := cmd.Int("queue-capacity"); v > 0 {
		cfg.QueueCapacity = int(v)
	}
	return cfg, cfg.Validate()
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "compile and execute an ardar source file",
	ArgsUsage: "<file.ardar | file.ardarc>",
	Flags:     []cli.Flag{maxCallDepthFlag, maxRegistersFlag, queueCapacityFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("run: missing file argument")
		}
		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}
		mod, err := loadModule(path)
		if err != nil {
			return err
		}
		v := vm.New(mod)
		v.Config = cfg
		builtins.Install(v)
		_, err = v.Run()
		return err
	},
}

var compileCommand = &cli.Command{
	Name:      "compile",
	Usage:     "compile an ardar source file to a bytecode module (.ardarc)",
	ArgsUsage: "<file.ardar> <out.ardarc>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		src := cmd.Args().Get(0)
		out := cmd.Args().Get(1)
		if src == "" || out == "" {
			return fmt.Errorf("compile: usage: ardar compile <file.ardar> <out.ardarc>")
		}
		code, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		prog, err := parser.ParseProgram(string(code))
		if err != nil {
			return err
		}
		mod, _, err := compiler.Compile(prog, string(code))
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		return codec.Write(f, mod)
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "disassemble a compiled module (.ardarc) to stdout",
	ArgsUsage: "<file.ardarc>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("disasm: missing file argument")
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		mod, err := codec.Read(f)
		if err != nil {
			return err
		}
		info, err := f.Stat()
		if err == nil {
			fmt.Printf("; %s (%s)\n", path, codec.SizeReport(int(info.Size())))
		}
		for i, c := range mod.Chunks {
			marker := ""
			if uint32(i) == mod.EntryChunkIndex {
				marker = " (entry)"
			}
			fmt.Printf("chunk %d: %s/%d%s\n", i, c.Name, c.Arity, marker)
			for ip, ins := range c.Code {
				fmt.Printf("  %4d  %-24s a=%d b=%d c=%d\n", ip, ins.Op, ins.A, ins.B, ins.C)
			}
			for ci, cst := range c.Constants {
				fmt.Printf("  const %d: %s\n", ci, cst.ToString())
			}
		}
		return nil
	},
}

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "start an interactive read-eval-print loop",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runREPL()
	},
}

// loadModule compiles path from source, unless it already carries the
// binary module's magic, in which case it loads the precompiled bytecode
// directly — the compile/run round trip `ardar compile` produces.
func loadModule(path string) (*chunk.Module, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(string(code), codec.MagicRegister) {
		return codec.Read(bytes.NewReader(code))
	}
	prog, err := parser.ParseProgram(string(code))
	if err != nil {
		return nil, err
	}
	mod, _, err := compiler.Compile(prog, string(code))
	return mod, err
}

func runREPL() error {
	rl, err := readline.New("ardar> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println(version.Version())
	prog, err := parser.ParseProgram("")
	if err != nil {
		return err
	}
	mod, _, err := compiler.Compile(prog, "")
	if err != nil {
		return err
	}
	v := vm.New(mod)
	builtins.Install(v)

	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		if line == "" {
			continue
		}
		prog, err := parser.ParseProgram(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		mod, _, err := compiler.Compile(prog, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		v.LoadModule(mod)
		result, err := v.Run()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(result.ToString())
	}
}
