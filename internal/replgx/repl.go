// Package replgx implements Graphix's interactive REPL: a liner-backed
// session (history file, multi-line continuation, colon-command
// dispatch) that compiles each line against a live *host.Host and
// prints its Updated(...) values as cycles run in the background. A
// line compiles a root that stays registered and keeps producing
// values on every subsequent cycle until :forget'd.
package replgx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/graphix-lang/graphix/internal/ast"
	"github.com/graphix-lang/graphix/internal/dataflow"
	"github.com/graphix-lang/graphix/internal/host"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// REPL is one interactive session driving a single Host.
type REPL struct {
	host      *host.Host
	version   string
	buildTime string
	history   []string
	roots     map[string]ast.ExprId // :forget target name -> registered root

	cancel context.CancelFunc
}

// New creates a REPL around an already-configured Host.
func New(h *host.Host, version, buildTime string) *REPL {
	if version == "" {
		version = "dev"
	}
	if buildTime == "" {
		buildTime = "unknown"
	}
	return &REPL{host: h, version: version, buildTime: buildTime, roots: map[string]ast.ExprId{}}
}

// Start runs the session until EOF or :quit.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), ".graphix_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintf(out, "%s %s\n", bold("graphix"), bold(r.version))
	fmt.Fprintln(out, dim("Type :help for help, :quit to exit"))
	fmt.Fprintln(out)

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	defer cancel()

	go r.pump(ctx, out)
	go func() {
		// Drive the host's cycle loop in the background so registered
		// roots keep producing values between prompts.
		_ = r.host.Run(ctx, 50*time.Millisecond, nil)
	}()

	line.SetCompleter(func(s string) (c []string) {
		if strings.HasPrefix(s, ":") {
			for _, cmd := range []string{":help", ":quit", ":forget", ":env", ":history", ":clear"} {
				if strings.HasPrefix(cmd, s) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	for {
		input, err := line.Prompt("gx> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)
		r.history = append(r.history, input)

		if strings.HasPrefix(input, ":") {
			if strings.HasPrefix(input, ":quit") || strings.HasPrefix(input, ":q") {
				fmt.Fprintln(out, green("Goodbye!"))
				break
			}
			r.handleCommand(input, out)
			continue
		}

		r.eval(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// eval compiles one line of input and registers its root; values show
// up asynchronously via pump as cycles run.
func (r *REPL) eval(input string, out io.Writer) {
	handle, err := r.host.Compile(input)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	name := fmt.Sprintf("_%d", handle.Id)
	r.roots[name] = handle.Id
	fmt.Fprintf(out, "%s registered as %s\n", dim("→"), cyan(name))
}

// pump prints every Updated(...) value the host's evaluator produces.
func (r *REPL) pump(ctx context.Context, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-r.host.Output():
			if !ok {
				return
			}
			if o.Kind == dataflow.OutputUpdated {
				fmt.Fprintf(out, "%s %s\n", cyan("=>"), o.Value.String())
			}
		}
	}
}

func (r *REPL) handleCommand(cmd string, out io.Writer) {
	parts := strings.Fields(cmd)
	switch parts[0] {
	case ":help", ":h":
		fmt.Fprintln(out, "REPL commands:")
		fmt.Fprintln(out, "  :help, :h          Show this help")
		fmt.Fprintln(out, "  :quit, :q          Exit the REPL")
		fmt.Fprintln(out, "  :forget <name>     Unregister a previously compiled root")
		fmt.Fprintln(out, "  :history           Show input history")
		fmt.Fprintln(out, "  :clear             Clear the screen")

	case ":forget":
		if len(parts) < 2 {
			fmt.Fprintln(out, "Usage: :forget <name>")
			return
		}
		id, ok := r.roots[parts[1]]
		if !ok {
			fmt.Fprintf(out, "%s: unknown handle %q\n", red("Error"), parts[1])
			return
		}
		r.host.Delete(id)
		delete(r.roots, parts[1])
		fmt.Fprintf(out, "%s forgot %s\n", green("✓"), parts[1])

	case ":history":
		for i, h := range r.history {
			fmt.Fprintf(out, "  %3d  %s\n", i+1, h)
		}

	case ":clear":
		fmt.Fprint(out, "\033[H\033[2J")

	default:
		fmt.Fprintf(out, "Unknown command: %s (try :help)\n", cmd)
	}
}
