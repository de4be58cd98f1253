// Command graphix is the Graphix host binary: it loads
// GRAPHIX_MODPATH resolvers, compiles a program, and drives it through
// the host's cycle loop, printing Updated(...) values as they arrive.
// Subcommand dispatch with fatih/color help text; the interactive
// session lives in internal/replgx.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/graphix-lang/graphix/internal/graphixfmt"
	"github.com/graphix-lang/graphix/internal/host"
	"github.com/graphix-lang/graphix/internal/hostcfg"
	"github.com/graphix-lang/graphix/internal/replgx"
	"github.com/graphix-lang/graphix/internal/resolve"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}
	args, verifyRoundtrip := splitFlags(os.Args)

	switch args[1] {
	case "run":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: graphix run <file.gx>")
			os.Exit(1)
		}
		cmdRun(args[2], verifyRoundtrip)

	case "repl":
		cmdRepl()

	case "check":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: graphix check <file.gx>")
			os.Exit(1)
		}
		cmdCheck(args[2], verifyRoundtrip)

	case "compile":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: graphix compile <file.gx>")
			os.Exit(1)
		}
		cmdCompile(args[2], verifyRoundtrip)

	case "watch":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\n", red("Error"))
			fmt.Println("Usage: graphix watch <file.gx>")
			os.Exit(1)
		}
		cmdRun(args[2], verifyRoundtrip)

	case "--version", "version":
		printVersion()

	case "--help", "help":
		printHelp()

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("graphix %s\n", bold(Version))
	if Commit != "unknown" {
		fmt.Printf("Commit: %s\n", Commit)
	}
	if BuildTime != "unknown" {
		fmt.Printf("Built:  %s\n", BuildTime)
	}
}

func printHelp() {
	fmt.Println(bold("graphix - incremental dataflow host"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  graphix <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s <file>     Compile and run a program, printing updates\n", cyan("run"))
	fmt.Printf("  %s            Start the interactive REPL\n", cyan("repl"))
	fmt.Printf("  %s <file>   Type-check a file without running it\n", cyan("check"))
	fmt.Printf("  %s <file>  Compile a file and print its resolved Env, without running\n", cyan("compile"))
	fmt.Printf("  %s <file>   Alias for run (no filesystem watcher in this build)\n", cyan("watch"))
	fmt.Printf("  %s         Print version information\n", cyan("version"))
	fmt.Println()
	fmt.Println("Options:")
	fmt.Printf("  %s  Check the print/reparse round-trip before compiling\n", cyan("--verify-roundtrip"))
}

// newHost builds a Host from GRAPHIX_MODPATH, falling
// back to hostcfg.DefaultModPath when unset. netidx entries are
// reported but skipped: this build carries no netidx client.
func newHost() *host.Host {
	entries, err := hostcfg.ParseModPath(os.Getenv("GRAPHIX_MODPATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", yellow("Warning"), err)
	}
	if len(entries) == 0 {
		entries = hostcfg.DefaultModPath()
	}

	var resolvers []resolve.Resolver
	for _, e := range entries {
		switch e.Kind {
		case "file":
			resolvers = append(resolvers, resolve.NewFilesResolver(e.Path))
		case "netidx":
			fmt.Fprintf(os.Stderr, "%s: netidx modpath entry %q ignored (no netidx client in this build)\n", yellow("Warning"), e.Path)
		}
	}
	return host.New(resolvers)
}

// splitFlags separates known option flags from positional arguments.
func splitFlags(argv []string) (args []string, verifyRoundtrip bool) {
	for _, a := range argv {
		if a == "--verify-roundtrip" {
			verifyRoundtrip = true
			continue
		}
		args = append(args, a)
	}
	return args, verifyRoundtrip
}

// verifyFile re-parses path's text through the printer and back,
// failing when the round-trip produces a structurally different
// tree.
func verifyFile(path string) {
	text, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	if err := graphixfmt.VerifyRoundTrip(string(text), path); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Roundtrip error"), err)
		os.Exit(1)
	}
	fmt.Printf("%s Roundtrip stable: %s\n", green("✓"), path)
}

func cmdRun(path string, verifyRoundtrip bool) {
	if verifyRoundtrip {
		verifyFile(path)
	}
	h := newHost()
	handle, err := h.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	fmt.Printf("%s Running %s\n", green("✓"), path)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		for out := range h.Output() {
			if out.Id == handle.Id {
				fmt.Printf("%s %s\n", cyan("→"), out.Value.String())
			}
		}
	}()

	if err := h.Run(ctx, 50*time.Millisecond, nil); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Runtime error"), err)
		os.Exit(1)
	}
}

func cmdCheck(path string, verifyRoundtrip bool) {
	if verifyRoundtrip {
		verifyFile(path)
	}
	h := newHost()
	if err := h.Check(path); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	fmt.Printf("%s No errors found in %s\n", green("✓"), path)
}

func cmdCompile(path string, verifyRoundtrip bool) {
	if verifyRoundtrip {
		verifyFile(path)
	}
	h := newHost()
	handle, err := h.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	fmt.Printf("%s Compiled %s (root expr %d)\n", green("✓"), path, handle.Id)
	for id, b := range handle.Env.ByID {
		fmt.Printf("  %s %s : %s\n", yellow(fmt.Sprintf("#%d", id)), b.Name, b.Typ.String())
	}
}

func cmdRepl() {
	h := newHost()
	r := replgx.New(h, Version, BuildTime)
	r.Start(os.Stdin, os.Stdout)
}
