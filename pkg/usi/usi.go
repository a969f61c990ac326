// Package usi implements the host side of the Universal Shogi Interface,
// driving an engine subprocess over line-buffered pipes.
//
// See: http://hgm.nubati.net/usi.html
package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/seekerror/stdlib/pkg/lang"
	"go.uber.org/atomic"

	"github.com/herohde/shoginet/pkg/logx"
)

// ErrDead indicates that the engine process is gone: EOF or a broken pipe
// on either side of the conversation. The session does not restart itself.
var ErrDead = errors.New("engine process dead")

// Kind identifies one of the two engines a worker owns.
type Kind int

const (
	// KindStd is the standard-shogi engine (YaneuraOu family).
	KindStd Kind = iota
	// KindVariant is the variant-capable engine (Fairy-Stockfish family).
	KindVariant
)

// Variants reports whether the engine understands USI_Variant.
func (k Kind) Variants() bool {
	return k == KindVariant
}

func (k Kind) String() string {
	if k == KindVariant {
		return "fairy"
	}
	return "yaneuraou"
}

// Clock is the time-control part of a job, in the server's units.
type Clock struct {
	BTime, WTime int64 // centiseconds remaining
	Byo          int64 // byoyomi seconds
	Inc          int64 // increment seconds
}

// GoOptions are the optional bounds for a "go" command.
type GoOptions struct {
	MoveTime lang.Optional[int64] // milliseconds
	Nodes    lang.Optional[int64]
	Depth    lang.Optional[int64]
	Clock    lang.Optional[Clock]
}

// Engine is a single engine session. All operations are issued by the
// owning worker only and are strictly sequential: at most one outstanding
// "go" at a time.
type Engine struct {
	kind Kind

	cmd     *exec.Cmd
	pid     int
	in      io.Writer
	out     *bufio.Scanner
	outFile *os.File
	exited  atomic.Bool
}

// Start spawns the engine command in the given directory. The child gets
// its own process group so parent signals do not reach it; stderr is
// merged into stdout.
func Start(ctx context.Context, kind Kind, command, dir string) (*Engine, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty engine command for %v", kind)
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Dir = dir
	cmd.SysProcAttr = sysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %v engine: %w", kind, err)
	}
	_ = pw.Close() // child holds the write end

	e := &Engine{
		kind:    kind,
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		in:      stdin,
		out:     bufio.NewScanner(pr),
		outFile: pr,
	}
	go func() {
		_ = cmd.Wait() // reap the child
		e.exited.Store(true)
	}()
	return e, nil
}

// Attach wraps an existing line transport as a session, without owning a
// process. Used by tests and by tools that manage the child themselves.
func Attach(kind Kind, in io.Writer, out io.Reader) *Engine {
	return &Engine{
		kind: kind,
		in:   in,
		out:  bufio.NewScanner(out),
	}
}

// Name returns the engine flavor name.
func (e *Engine) Name() string {
	return e.kind.String()
}

// PID returns the child process id, or zero for attached sessions.
func (e *Engine) PID() int {
	return e.pid
}

// Alive reports whether the child process is still running. Attached
// sessions are alive until killed.
func (e *Engine) Alive() bool {
	return !e.exited.Load()
}

// Kill destroys the session: group-kill the child and release its pipes.
// Any operation in flight surfaces a dead-engine error. Idempotent.
func (e *Engine) Kill(ctx context.Context) {
	e.exited.Store(true)
	if c, ok := e.in.(io.Closer); ok {
		_ = c.Close()
	}
	if e.cmd != nil && e.cmd.Process != nil {
		if err := killGroup(e.pid); err != nil {
			logx.Warningf(ctx, "Failed to kill engine process group %v: %v", e.pid, err)
		}
	}
	if e.outFile != nil {
		_ = e.outFile.Close()
	}
}

func (e *Engine) send(ctx context.Context, line string) error {
	logx.Debugf(ctx, "%v(%v) << %v", e.pid, e.Name(), line)
	if _, err := fmt.Fprintln(e.in, line); err != nil {
		return fmt.Errorf("%w: %v", ErrDead, err)
	}
	return nil
}

// recv returns the next non-empty line, or ErrDead on EOF.
func (e *Engine) recv(ctx context.Context) (string, error) {
	for {
		if !e.out.Scan() {
			if err := e.out.Err(); err != nil {
				return "", fmt.Errorf("%w: %v", ErrDead, err)
			}
			return "", ErrDead
		}
		line := strings.TrimRight(e.out.Text(), " \t\r")

		logx.Debugf(ctx, "%v(%v) >> %v", e.pid, e.Name(), line)
		if line != "" {
			return line, nil
		}
	}
}

// recvSplit returns the next line split into command and argument.
func (e *Engine) recvSplit(ctx context.Context) (string, string, error) {
	line, err := e.recv(ctx)
	if err != nil {
		return "", "", err
	}
	cmd, arg, _ := strings.Cut(line, " ")
	return cmd, strings.TrimSpace(arg), nil
}

// USI performs the protocol handshake: sends "usi" and reads lines until
// "usiok", collecting "id" values. Option advertisements are ignored.
func (e *Engine) USI(ctx context.Context) (map[string]string, error) {
	if err := e.send(ctx, "usi"); err != nil {
		return nil, err
	}

	info := map[string]string{}
	for {
		cmd, arg, err := e.recvSplit(ctx)
		if err != nil {
			return nil, err
		}

		switch cmd {
		case "usiok":
			return info, nil
		case "id":
			if name, value, ok := strings.Cut(arg, " "); ok {
				info[name] = strings.TrimSpace(value)
			}
		case "option", "Fairy-Stockfish":
			// not interesting
		default:
			logx.Warningf(ctx, "Unexpected engine response to usi: %v %v", cmd, arg)
		}
	}
}

// IsReady sends "isready" and waits for "readyok". Engines may emit
// "info string" lines while initializing.
func (e *Engine) IsReady(ctx context.Context) error {
	if err := e.send(ctx, "isready"); err != nil {
		return err
	}
	for {
		cmd, arg, err := e.recvSplit(ctx)
		if err != nil {
			return err
		}

		switch {
		case cmd == "readyok":
			return nil
		case cmd == "info" && strings.HasPrefix(arg, "string "):
			// tolerated
		default:
			logx.Warningf(ctx, "Unexpected engine response to isready: %v %v", cmd, arg)
		}
	}
}

// SetOption issues "setoption name <name> value <value>".
func (e *Engine) SetOption(ctx context.Context, name, value string) error {
	if value == "" {
		value = "none"
	}
	return e.send(ctx, fmt.Sprintf("setoption name %v value %v", name, value))
}

// SetVariantOptions selects the variant on variant-capable sessions. The
// standard game maps to USI_Variant "shogi".
func (e *Engine) SetVariantOptions(ctx context.Context, variant string) error {
	if !e.kind.Variants() {
		return nil
	}
	variant = strings.ToLower(variant)
	if variant == "standard" {
		variant = "shogi"
	}
	return e.SetOption(ctx, "USI_Variant", variant)
}

// NewGame issues "usinewgame".
func (e *Engine) NewGame(ctx context.Context) error {
	return e.send(ctx, "usinewgame")
}

// Go sets the position and starts a search with the given bounds. Clock
// values are converted to milliseconds: btime/wtime arrive in
// centiseconds, byoyomi and increments in seconds.
func (e *Engine) Go(ctx context.Context, position string, moves []string, opt GoOptions) error {
	if err := e.send(ctx, fmt.Sprintf("position sfen %v moves %v", position, strings.Join(moves, " "))); err != nil {
		return err
	}

	builder := []string{"go"}
	if v, ok := opt.MoveTime.V(); ok {
		builder = append(builder, "movetime", fmt.Sprint(v))
	}
	if v, ok := opt.Nodes.V(); ok {
		builder = append(builder, "nodes", fmt.Sprint(v))
	}
	if v, ok := opt.Depth.V(); ok {
		builder = append(builder, "depth", fmt.Sprint(v))
	}
	if c, ok := opt.Clock.V(); ok {
		builder = append(builder, "btime", fmt.Sprint(c.BTime*10), "wtime", fmt.Sprint(c.WTime*10))
		builder = append(builder, "byoyomi", fmt.Sprint(c.Byo*1000))
		if c.Inc > 0 {
			builder = append(builder, "binc", fmt.Sprint(c.Inc*1000), "winc", fmt.Sprint(c.Inc*1000))
		}
	}
	return e.send(ctx, strings.Join(builder, " "))
}

// RecvBestmove reads until "bestmove" and returns the move token. Absent
// if the engine reports "(none)" or "resign".
func (e *Engine) RecvBestmove(ctx context.Context) (lang.Optional[string], error) {
	for {
		cmd, arg, err := e.recvSplit(ctx)
		if err != nil {
			return lang.Optional[string]{}, err
		}

		switch cmd {
		case "bestmove":
			return bestmoveToken(arg), nil
		case "info":
			// ignored
		default:
			logx.Warningf(ctx, "Unexpected engine response to go: %v %v", cmd, arg)
		}
	}
}

// RecvAnalysis reads until "bestmove", maintaining the info tables.
func (e *Engine) RecvAnalysis(ctx context.Context) (*Analysis, error) {
	var p infoParser
	for {
		cmd, arg, err := e.recvSplit(ctx)
		if err != nil {
			return nil, err
		}

		switch cmd {
		case "bestmove":
			return &p.analysis, nil
		case "info":
			p.parse(arg)
		default:
			logx.Warningf(ctx, "Unexpected engine response to go: %v %v", cmd, arg)
		}
	}
}

// RecvPuzzleAnalysis reads until "bestmove" and returns the move together
// with the deepest score per PV.
func (e *Engine) RecvPuzzleAnalysis(ctx context.Context) (lang.Optional[string], []int64, error) {
	var p infoParser
	for {
		cmd, arg, err := e.recvSplit(ctx)
		if err != nil {
			return lang.Optional[string]{}, nil, err
		}

		switch cmd {
		case "bestmove":
			return bestmoveToken(arg), p.analysis.DeepestScores(), nil
		case "info":
			p.parse(arg)
		default:
			logx.Warningf(ctx, "Unexpected engine response to go: %v %v", cmd, arg)
		}
	}
}

func bestmoveToken(arg string) lang.Optional[string] {
	token, _, _ := strings.Cut(arg, " ")
	if token == "" || token == "(none)" || token == "resign" {
		return lang.Optional[string]{}
	}
	return lang.Some(token)
}
