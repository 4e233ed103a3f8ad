package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/keycalc"
	"github.com/zephyrtronium/keycalc/store"
)

const replHelp = `Type tokens separated by spaces. Each line extends the same tree.
  ->        move to the next argument slot
  +-        change the sign of the number being typed
  :reset    start a new tree
  :undo     undo the last line
  :json     print the encoded tree
  :fold     replace the tree with a literal of its value
  :const N  save the current value as constant N
  :func N   save the current tree as function N of its variables
  :quit     exit`

func (a *app) replCmd() *cobra.Command {
	var vars map[string]string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Edit an expression interactively, token by token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolver(vars)
			if err != nil {
				return err
			}
			return a.repl(cmd.OutOrStdout(), res)
		},
	}
	varFlags(cmd.Flags(), &vars)
	return cmd
}

// session is the state of one REPL.
type session struct {
	a   *app
	out io.Writer
	p   *keycalc.Parser
	// undo holds the encoded tree before each line.
	undo [][]byte
}

func (a *app) repl(out io.Writer, res keycalc.Resolver) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		i := strings.LastIndexByte(line, ' ') + 1
		var c []string
		for _, name := range a.reg.Names() {
			if strings.HasPrefix(name, line[i:]) {
				c = append(c, line[:i]+name)
			}
		}
		return c
	})

	hist, err := xdg.StateFile("keycalc/history")
	if err != nil {
		a.log.WithError(err).Warn("no history file")
	} else {
		if f, err := os.Open(hist); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(hist); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}

	s := &session{
		a:   a,
		out: out,
		p:   keycalc.NewParser(a.reg, keycalc.WithLogger(a.log), keycalc.WithResolver(res)),
	}
	fmt.Fprintln(out, "keycalc: type :help for commands")
	for {
		line, err := ln.Prompt(s.p.String() + " > ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if strings.HasPrefix(line, ":") {
			if quit := s.command(line); quit {
				return nil
			}
			continue
		}
		s.line(line)
	}
}

// line applies the tokens of one line and prints the result. Tokens after a
// rejected one are dropped.
func (s *session) line(line string) {
	toks, err := keycalc.TokenizeString(line)
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	if b, err := keycalc.Encode(s.p.Root()); err == nil {
		s.undo = append(s.undo, b)
	}
	for _, tok := range toks {
		if err := s.p.Parse(tok); err != nil {
			fmt.Fprintln(s.out, "error:", err)
			break
		}
	}
	s.show()
}

func (s *session) show() {
	r, err := s.p.Evaluate()
	var merr *keycalc.MissingArgumentError
	switch {
	case errors.As(err, &merr):
		fmt.Fprintln(s.out, "=", "…")
	case err != nil:
		fmt.Fprintln(s.out, "error:", err)
	default:
		fmt.Fprintln(s.out, "=", r)
	}
}

func (s *session) command(line string) (quit bool) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(s.out, replHelp)
	case ":reset":
		s.undo = append(s.undo, nil)
		s.p.Reset()
	case ":undo":
		s.restore()
	case ":json":
		b, err := keycalc.Encode(s.p.Root())
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			break
		}
		fmt.Fprintf(s.out, "%s\n", b)
	case ":fold":
		s.fold()
	case ":const":
		s.saveConst(arg)
	case ":func":
		s.saveFunc(arg)
	default:
		fmt.Fprintln(s.out, "unknown command; type :help")
	}
	return false
}

// restore returns to the tree before the last line.
func (s *session) restore() {
	if len(s.undo) == 0 {
		fmt.Fprintln(s.out, "nothing to undo")
		return
	}
	b := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	if b == nil {
		s.p.Reset()
		return
	}
	tree, err := s.p.Registry().Decode(b)
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	s.p.Load(tree)
}

// fold replaces the tree with a number literal holding its value, so that
// further tokens build on the result.
func (s *session) fold() {
	r, err := s.p.Evaluate()
	if err != nil || !r.IsNumber() {
		fmt.Fprintln(s.out, "error: tree has no numeric value")
		return
	}
	if b, err := keycalc.Encode(s.p.Root()); err == nil {
		s.undo = append(s.undo, b)
	}
	s.p.Load(keycalc.NewNode(keycalc.Float(r.Number())))
	s.show()
}

func (s *session) saveConst(name string) {
	if name == "" {
		fmt.Fprintln(s.out, "usage: :const NAME")
		return
	}
	r, err := s.p.Evaluate()
	if err != nil || !r.IsNumber() {
		fmt.Fprintln(s.out, "error: tree has no numeric value")
		return
	}
	if lib, err := s.a.library(); err == nil {
		if err := lib.PutConstant(name, r.Number()); err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return
		}
	}
	s.p.Registry().RegisterConstant(name, r.Number())
	fmt.Fprintf(s.out, "%s = %v\n", name, r)
}

func (s *session) saveFunc(name string) {
	if name == "" {
		fmt.Fprintln(s.out, "usage: :func NAME")
		return
	}
	v, err := s.p.Registry().DefineInferred(name, s.p.Root())
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	if lib, err := s.a.library(); err == nil {
		rec, err := store.FuncRecordOf(v)
		if err == nil {
			err = lib.PutFunction(rec)
		}
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return
		}
	}
	fmt.Fprintln(s.out, signature(v))
}
