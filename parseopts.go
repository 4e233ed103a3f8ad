package keycalc

import (
	"io"

	"github.com/sirupsen/logrus"
)

// ParserOption is an option for creating a Parser.
type ParserOption interface {
	parserOption(*Parser)
}

type (
	logopt struct {
		log logrus.FieldLogger
	}
	resolveopt struct {
		r Resolver
	}
)

// WithLogger sets a logger for the parser. Each accepted token is logged at
// debug level and each rejected token at info level. By default the parser
// logs nothing.
func WithLogger(log logrus.FieldLogger) ParserOption {
	return &logopt{log}
}

func (o *logopt) parserOption(p *Parser) {
	if o.log == nil {
		p.log = discard
		return
	}
	p.log = o.log
}

// WithResolver attaches a resolver for free variables to every tree the
// parser starts.
func WithResolver(r Resolver) ParserOption {
	return &resolveopt{r}
}

func (o *resolveopt) parserOption(p *Parser) {
	p.resolve = o.r
}

var discard = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}()
