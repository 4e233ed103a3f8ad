package keycalc

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Navigation tokens handled by the parser itself rather than the registry.
const (
	// TokenNext moves the cursor to the next argument slot.
	TokenNext = "->"
	// TokenSign flips the sign of the number literal under the cursor.
	TokenSign = "+-"
)

// Parser builds an expression tree one token at a time. The tree is complete
// after every token, except that it may hold placeholders. A Parser is not
// safe for concurrent use.
type Parser struct {
	reg     *Registry
	root    *Node
	cursor  *Node
	resolve Resolver
	log     logrus.FieldLogger
}

// NewParser creates a parser that looks up tokens in reg. The parser starts
// with a root holding one placeholder, with the cursor on the placeholder.
func NewParser(reg *Registry, opts ...ParserOption) *Parser {
	p := &Parser{reg: reg, log: discard}
	for _, opt := range opts {
		opt.parserOption(p)
	}
	p.Reset()
	return p
}

// Reset discards the tree and starts a new one.
func (p *Parser) Reset() {
	p.root = NewRoot()
	p.root.SetResolver(p.resolve)
	p.cursor = p.root.children[0]
}

// Load resumes editing tree. If tree is not a root container, it is wrapped in
// one. The cursor goes to the first placeholder in the tree, or to its last
// leaf if there is none. The parser takes ownership of tree.
func (p *Parser) Load(tree *Node) {
	if tree.value.name != RootName {
		root := &Node{value: rootValue}
		root.add(tree)
		tree = root
	}
	tree.parent = nil
	if len(tree.children) == 0 {
		tree.fill(1)
	}
	if tree.resolve == nil {
		tree.SetResolver(p.resolve)
	}
	p.root = tree
	p.cursor = nil
	tree.Walk(func(n *Node) bool {
		if p.cursor != nil {
			return false
		}
		if n.value.kind == KindPlaceholder {
			p.cursor = n
		}
		return true
	})
	if p.cursor != nil {
		return
	}
	n := tree
	for len(n.children) > 0 {
		n = n.children[len(n.children)-1]
	}
	p.cursor = n
}

// Root returns the root of the tree being built.
func (p *Parser) Root() *Node {
	return p.root
}

// Cursor returns the node where the next token takes effect.
func (p *Parser) Cursor() *Node {
	return p.cursor
}

// Registry returns the registry the parser looks tokens up in.
func (p *Parser) Registry() *Registry {
	return p.reg
}

// Evaluate evaluates the tree being built.
func (p *Parser) Evaluate() (Result, error) {
	return p.root.Evaluate()
}

func (p *Parser) String() string {
	var b strings.Builder
	p.root.fmt(&b, false, p.cursor)
	return b.String()
}

// ParseAll parses each token in turn, stopping at the first that fails.
func (p *Parser) ParseAll(tokens []string) error {
	for i, tok := range tokens {
		if err := p.Parse(tok); err != nil {
			return errors.Wrapf(err, "token %d", i+1)
		}
	}
	return nil
}

// Parse applies one token to the tree. The token is a name optionally
// followed by arguments, each after ArgSep, as in "#var:y". If the token
// cannot be applied, the error describes why and the tree is unchanged.
func (p *Parser) Parse(token string) error {
	name, args := splitToken(token)
	return p.ParseToken(name, args...)
}

// ParseToken is like Parse with the name and arguments of the token already
// separated.
func (p *Parser) ParseToken(name string, args ...string) error {
	log := p.log.WithField("token", name)
	if len(args) > 0 {
		log = log.WithField("args", args)
	}
	if err := p.dispatch(name, args); err != nil {
		log.WithError(err).Info("rejected token")
		return err
	}
	log.WithField("cursor", p.cursor.value.String()).Debug("parsed token")
	return nil
}

func (p *Parser) dispatch(name string, args []string) error {
	switch {
	case numeric(name):
		return p.number(name, args)
	case name == TokenNext:
		return p.advance()
	case name == TokenSign:
		return p.flip()
	}
	v, err := p.reg.resolve(name, args)
	if err != nil {
		return err
	}
	return p.place(name, v)
}

// number types digits into the literal under the cursor, or starts a new
// literal if they do not continue it.
func (p *Parser) number(tok string, args []string) error {
	if v, ok := p.cursor.value.appendDigits(tok); ok {
		p.cursor.value = v
		return nil
	}
	v, err := Literal(tok)
	if err != nil {
		return &InsertionError{Token: tok, Node: p.cursor, Reason: "malformed number"}
	}
	if err := v.configure(args); err != nil {
		return err
	}
	return p.place(tok, v)
}

func (p *Parser) advance() error {
	parent := p.cursor.parent
	if parent == nil {
		return &AdvanceError{Node: p.cursor}
	}
	next, err := parent.nextSlot(p.cursor)
	if err != nil {
		return err
	}
	p.cursor = next
	return nil
}

func (p *Parser) flip() error {
	if p.cursor.value.kind != KindNumber {
		return &InsertionError{Token: TokenSign, Node: p.cursor, Reason: "sign change needs a number"}
	}
	p.cursor.value.neg = !p.cursor.value.neg
	return nil
}

// placement is the context the cursor gives a new node.
type placement int8

const (
	// contextEmpty is a placeholder waiting for a value.
	contextEmpty placement = iota
	// contextOperation is a finished operand that an operator can wrap.
	contextOperation
	// contextPriority is a flat infix operator.
	contextPriority
)

func contextOf(n *Node) placement {
	switch {
	case n.value.kind == KindPlaceholder:
		return contextEmpty
	case n.value.Arity().Class == ClassPriority:
		return contextPriority
	default:
		return contextOperation
	}
}

// place puts a new node holding v into the tree according to its arity and the
// cursor's context.
func (p *Parser) place(tok string, v Value) error {
	cur := p.cursor
	ctx := contextOf(cur)
	n := NewNode(v)
	a := v.Arity()
	switch a.Class {
	case ClassArguments:
		if ctx != contextEmpty {
			return &InsertionError{Token: tok, Node: cur, Reason: "an operand is already here"}
		}
		return p.fillSlot(tok, cur, n, a.fresh())
	case ClassPrefix:
		switch ctx {
		case contextEmpty:
			return p.fillSlot(tok, cur, n, a.fresh())
		case contextOperation:
			return p.wrap(tok, cur, n, a.Count.least())
		default:
			return &InsertionError{Token: tok, Node: cur, Reason: "needs an operand before it"}
		}
	case ClassPriority:
		if ctx == contextEmpty {
			return &InsertionError{Token: tok, Node: cur, Reason: "needs an operand before it"}
		}
		return p.climb(tok, cur, n, a.Level)
	default:
		return &InsertionError{Token: tok, Node: cur, Reason: "invalid arity " + a.String()}
	}
}

// fillSlot replaces the placeholder cur with n holding k fresh placeholders.
func (p *Parser) fillSlot(tok string, cur, n *Node, k int) error {
	parent := cur.parent
	if parent == nil {
		return &InsertionError{Token: tok, Node: cur, Reason: "cannot replace the root"}
	}
	n.fill(k)
	next, err := parent.replace(cur, n)
	if err != nil {
		return err
	}
	slot, err := next.nextSlot(next.parent)
	if err != nil {
		return err
	}
	p.cursor = slot
	return nil
}

// wrap makes n the parent of the finished operand cur, followed by k fresh
// placeholders.
func (p *Parser) wrap(tok string, cur, n *Node, k int) error {
	if cur.parent == nil {
		return &InsertionError{Token: tok, Node: cur, Reason: "cannot wrap the root"}
	}
	next, err := cur.insertParent(n)
	if err != nil {
		return err
	}
	next.fill(k)
	slot, err := next.nextSlot(cur)
	if err != nil {
		return err
	}
	p.cursor = slot
	return nil
}

// climb places a flat infix operator at level. It climbs the chain of infix
// operators above the cursor while they bind tighter, then takes the last
// operand of the operator it stops at, or the operator itself if that still
// binds tighter.
func (p *Parser) climb(tok string, cur, n *Node, level uint) error {
	target := cur
	if at := cur.parent; at != nil && at.value.Arity().Class == ClassPriority {
		left := at.value.Arity().Level
		for at.parent != nil && at.parent.value.Arity().Class == ClassPriority && left > level {
			at = at.parent
			left = at.value.Arity().Level
		}
		target = at
		if left <= level && len(at.children) > 0 {
			target = at.children[len(at.children)-1]
		}
	}
	if target.parent == nil {
		return &InsertionError{Token: tok, Node: target, Reason: "needs an operand before it"}
	}
	next, err := target.insertParent(n)
	if err != nil {
		return err
	}
	slot, err := next.add(NewNode(Placeholder()))
	if err != nil {
		return err
	}
	p.cursor = slot
	return nil
}
