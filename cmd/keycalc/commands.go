package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zephyrtronium/keycalc"
	"github.com/zephyrtronium/keycalc/store"
)

// varFlags adds --var to a command.
func varFlags(fs *pflag.FlagSet, vars *map[string]string) {
	fs.StringToStringVar(vars, "var", nil, "name=value variable values (any number of times)")
}

// resolver builds a variable resolver from --var values.
func resolver(vars map[string]string) (keycalc.Resolver, error) {
	vals := make(map[string]float64, len(vars))
	for k, v := range vars {
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value of %s", k)
		}
		vals[k] = x
	}
	return func(name string) (float64, bool) {
		x, ok := vals[name]
		return x, ok
	}, nil
}

// tokens returns the tokens of a command: its arguments, or text split into
// tokens if given.
func tokens(args []string, text string) ([]string, error) {
	if text == "" {
		return args, nil
	}
	if len(args) > 0 {
		return nil, errors.New("give either token arguments or --text, not both")
	}
	return keycalc.TokenizeString(text)
}

// build parses tokens into a new tree.
func (a *app) build(toks []string, opts ...keycalc.ParserOption) (*keycalc.Parser, error) {
	opts = append([]keycalc.ParserOption{keycalc.WithLogger(a.log)}, opts...)
	p := keycalc.NewParser(a.reg, opts...)
	if err := p.ParseAll(toks); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *app) evalCmd() *cobra.Command {
	var (
		text   string
		vars   map[string]string
		echo   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "eval [TOKEN...]",
		Short: "Evaluate a token sequence",
		Example: `  keycalc eval 2 + 5 '*' 2
  keycalc eval --text 'pow 2 -> abs -4 + 2 + 0 -> * 1.5'
  keycalc eval --var y=3 '#var:y' '*' 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			toks, err := tokens(args, text)
			if err != nil {
				return err
			}
			res, err := resolver(vars)
			if err != nil {
				return err
			}
			p, err := a.build(toks, keycalc.WithResolver(res))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if echo {
				fmt.Fprintf(out, "%v : ", p.Root())
			}
			if asJSON {
				b, err := keycalc.Encode(p.Root())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", b)
			}
			r, err := p.Evaluate()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, r)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&text, "text", "t", "", "expression text to split into tokens")
	fs.BoolVar(&echo, "echo", false, "print the tree before the result")
	fs.BoolVar(&asJSON, "json", false, "print the encoded tree before the result")
	varFlags(fs, &vars)
	return cmd
}

func (a *app) constCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "const NAME [TOKEN...]",
		Short: "Save the value of a token sequence as a named constant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			name := args[0]
			toks, err := tokens(args[1:], text)
			if err != nil {
				return err
			}
			p, err := a.build(toks)
			if err != nil {
				return err
			}
			r, err := p.Evaluate()
			if err != nil {
				return err
			}
			if !r.IsNumber() {
				return errors.Errorf("%s depends on variables %v", name, r.Free())
			}
			if err := lib.PutConstant(name, r.Number()); err != nil {
				return err
			}
			a.reg.RegisterConstant(name, r.Number())
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", name, r)
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "expression text to split into tokens")
	return cmd
}

func (a *app) funcCmd() *cobra.Command {
	var (
		text string
		argn []string
	)
	cmd := &cobra.Command{
		Use:   "func NAME [TOKEN...]",
		Short: "Save a token sequence as a function of its variables",
		Example: `  keycalc func hyp --text 'sqrt #var:a * #var:a + #var:b * #var:b'
  keycalc func lerp --args a,b,t --text '#var:a + #var:t * #var:b - #var:t * #var:a'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			name := args[0]
			toks, err := tokens(args[1:], text)
			if err != nil {
				return err
			}
			p, err := a.build(toks)
			if err != nil {
				return err
			}
			v, err := define(a.reg, name, argn, p.Root())
			if err != nil {
				return err
			}
			rec, err := store.FuncRecordOf(v)
			if err != nil {
				return err
			}
			if err := lib.PutFunction(rec); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signature(v))
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "expression text to split into tokens")
	cmd.Flags().StringSliceVar(&argn, "args", nil, "argument order (default: variables in sorted order)")
	return cmd
}

// signature describes a value for listings.
func signature(v keycalc.Value) string {
	switch v.Kind() {
	case keycalc.KindConstant:
		return fmt.Sprintf("%s = %v", v.Name(), v.Number())
	case keycalc.KindUser:
		u := v.UserFunc()
		return fmt.Sprintf("%s(%s) = %v", v.Name(), strings.Join(u.ArgNames(), ", "), u.Template())
	case keycalc.KindOperator:
		a := v.Arity()
		k := fixedArgs(a)
		if k == 0 {
			return fmt.Sprintf("%s %s", v.Name(), a)
		}
		names := make([]string, k)
		for i := range names {
			names[i] = v.ArgName(i)
		}
		return fmt.Sprintf("%s %s (%s)", v.Name(), a, strings.Join(names, ", "))
	default:
		return v.Name()
	}
}

// fixedArgs is the number of arguments every use of an arity has.
func fixedArgs(a keycalc.Arity) int {
	if a.Class == keycalc.ClassPriority {
		return 0
	}
	var n int
	switch a.Count {
	case keycalc.ZeroOrMore:
	case keycalc.OneOrMore:
		n = 1
	default:
		n = int(a.Count)
	}
	if a.Class == keycalc.ClassPrefix {
		n++
	}
	return n
}

func (a *app) listCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved constants and functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if all {
				for _, name := range a.reg.Names() {
					v, _ := a.reg.Lookup(name)
					fmt.Fprintln(out, signature(v))
				}
				return nil
			}
			lib, err := a.library()
			if err != nil {
				return err
			}
			consts, err := lib.Constants()
			if err != nil {
				return err
			}
			for _, c := range consts {
				fmt.Fprintf(out, "%s = %v\n", c.Name, c.Value)
			}
			funcs, err := lib.Functions()
			if err != nil {
				return err
			}
			for _, f := range funcs {
				v, ok := a.reg.Lookup(f.Name)
				if !ok || v.UserFunc() == nil {
					fmt.Fprintf(out, "%s(%s) [not loaded]\n", f.Name, strings.Join(f.Args, ", "))
					continue
				}
				fmt.Fprintln(out, signature(v))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every registered name, including built-in operators")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a definition and its encoded form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := a.reg.Lookup(args[0])
			if !ok {
				return &keycalc.UnknownOperationError{Name: args[0]}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, signature(v))
			if u := v.UserFunc(); u != nil {
				b, err := json.MarshalIndent(u.Template(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", b)
			}
			return nil
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	var (
		vars map[string]string
		echo bool
	)
	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Decode a saved tree and evaluate it (- reads standard input)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readFile(cmd, args[0])
			if err != nil {
				return err
			}
			tree, err := a.reg.Decode(b)
			if err != nil {
				return err
			}
			res, err := resolver(vars)
			if err != nil {
				return err
			}
			tree.SetResolver(res)
			out := cmd.OutOrStdout()
			if echo {
				fmt.Fprintf(out, "%v : ", tree)
			}
			r, err := tree.Evaluate()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&echo, "echo", false, "print the tree before the result")
	varFlags(cmd.Flags(), &vars)
	return cmd
}

func readFile(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(name)
	return b, errors.WithStack(err)
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove saved constants or functions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			for _, name := range args {
				ok, err := lib.Delete(name)
				if err != nil {
					return err
				}
				if !ok {
					return errors.Errorf("%q is not in the library", name)
				}
				a.log.WithField("name", name).Info("removed")
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the library as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				return lib.ExportYAML(cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return errors.WithStack(err)
			}
			if err := lib.ExportYAML(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Add definitions from a YAML library (- reads standard input)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			b, err := readFile(cmd, args[0])
			if err != nil {
				return err
			}
			if err := lib.ImportYAML(bytes.NewReader(b)); err != nil {
				return err
			}
			return lib.LoadInto(a.reg)
		},
	}
}
