package bsbidx

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BOOLEAN QUERY EVALUATOR (C8, TAAT)
// ═══════════════════════════════════════════════════════════════════════════════
// A small recursive-descent parser turns a string like
// "(casa OR raton) AND gato" into a boolExpr tree; evaluation computes a
// roaring.Bitmap of DocIds for each leaf and combines them bottom-up.
// AND of literal terms is additionally skip-accelerated (spec.md §4.8).
// ═══════════════════════════════════════════════════════════════════════════════

type boolExprKind int

const (
	exprTerm boolExprKind = iota
	exprAnd
	exprOr
	exprNot
)

// boolExpr is one node of a parsed Boolean expression.
type boolExpr struct {
	kind     boolExprKind
	term     string
	children []*boolExpr
}

// --- lexer -----------------------------------------------------------------

type boolTokKind int

const (
	tokTerm boolTokKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokEOF
)

type boolTok struct {
	kind boolTokKind
	text string
}

// lexBoolean splits a query string into tokens, treating parentheses as
// self-delimiting even when not surrounded by whitespace.
func lexBoolean(s string) []boolTok {
	var toks []boolTok
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, boolTok{kind: tokLParen, text: "("})
			i++
		case r == ')':
			toks = append(toks, boolTok{kind: tokRParen, text: ")"})
			i++
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && runes[i] != '(' && runes[i] != ')' {
				i++
			}
			word := string(runes[start:i])
			switch strings.ToUpper(word) {
			case "AND":
				toks = append(toks, boolTok{kind: tokAnd, text: word})
			case "OR":
				toks = append(toks, boolTok{kind: tokOr, text: word})
			case "NOT":
				toks = append(toks, boolTok{kind: tokNot, text: word})
			default:
				toks = append(toks, boolTok{kind: tokTerm, text: strings.ToLower(word)})
			}
		}
	}
	toks = append(toks, boolTok{kind: tokEOF})
	return toks
}

// --- parser ------------------------------------------------------------------

// booleanParser is a small recursive-descent parser over a fixed grammar:
//
//	orExpr   := andExpr (OR andExpr)*
//	andExpr  := notExpr (AND notExpr)*
//	notExpr  := NOT notExpr | primary
//	primary  := TERM | '(' orExpr ')'
type booleanParser struct {
	toks []boolTok
	pos  int
}

func (p *booleanParser) peek() boolTok { return p.toks[p.pos] }
func (p *booleanParser) next() boolTok {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *booleanParser) parseOr() (*boolExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{kind: exprOr, children: []*boolExpr{left, right}}
	}
	return left, nil
}

func (p *booleanParser) parseAnd() (*boolExpr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{kind: exprAnd, children: []*boolExpr{left, right}}
	}
	return left, nil
}

func (p *booleanParser) parseNot() (*boolExpr, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &boolExpr{kind: exprNot, children: []*boolExpr{operand}}, nil
	}
	return p.parsePrimary()
}

func (p *booleanParser) parsePrimary() (*boolExpr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokTerm:
		p.next()
		return &boolExpr{kind: exprTerm, term: tok.text}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')', got %q", ErrUnexpectedToken, p.peek().text)
		}
		p.next()
		return inner, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrUnexpectedToken, tok.text)
	}
}

// ParseBooleanExpr parses a Boolean query expression (spec.md §4.8's
// grammar: AND/OR/NOT atoms with parentheses).
func ParseBooleanExpr(s string) (*boolExpr, error) {
	toks := lexBoolean(s)
	if len(toks) == 1 { // just tokEOF
		return nil, fmt.Errorf("%w: empty expression", ErrMalformedExpression)
	}
	p := &booleanParser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExpression, err)
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing input at %q", ErrMalformedExpression, p.peek().text)
	}
	return expr, nil
}

// --- evaluation --------------------------------------------------------------

// EvaluateBoolean parses and evaluates a Boolean expression against idx,
// returning the matching DocIds.
func (idx *Index) EvaluateBoolean(expr string) (*roaring.Bitmap, error) {
	slog.Info("query", slog.String("text", expr), slog.String("mode", "boolean"))
	tree, err := ParseBooleanExpr(expr)
	if err != nil {
		return nil, err
	}
	return idx.evalBoolExpr(tree)
}

func (idx *Index) evalBoolExpr(e *boolExpr) (*roaring.Bitmap, error) {
	switch e.kind {
	case exprTerm:
		postings, err := idx.Postings(e.term)
		if err != nil {
			return nil, err
		}
		bm := roaring.New()
		for _, p := range postings {
			bm.Add(p.DocID)
		}
		return bm, nil

	case exprNot:
		sub, err := idx.evalBoolExpr(e.children[0])
		if err != nil {
			return nil, err
		}
		result := idx.AllDocIDs()
		result.AndNot(sub)
		return result, nil

	case exprOr:
		result := roaring.New()
		for _, c := range e.children {
			sub, err := idx.evalBoolExpr(c)
			if err != nil {
				return nil, err
			}
			result.Or(sub)
		}
		return result, nil

	case exprAnd:
		terms, literal := flattenLiteralAnd(e)
		if literal {
			return idx.andTerms(terms)
		}
		var result *roaring.Bitmap
		for _, c := range e.children {
			sub, err := idx.evalBoolExpr(c)
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = sub
				continue
			}
			result.And(sub)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownOperator, e.kind)
	}
}

// flattenLiteralAnd collects the term strings of an AND node whose every
// (possibly nested-AND) child is a plain term literal, enabling the
// skip-accelerated path. Any non-term child (NOT, OR, parenthesised group)
// disqualifies the whole node.
func flattenLiteralAnd(e *boolExpr) ([]string, bool) {
	var terms []string
	var walk func(n *boolExpr) bool
	walk = func(n *boolExpr) bool {
		switch n.kind {
		case exprTerm:
			terms = append(terms, n.term)
			return true
		case exprAnd:
			for _, c := range n.children {
				if !walk(c) {
					return false
				}
			}
			return true
		default:
			return false
		}
	}
	if !walk(e) {
		return nil, false
	}
	return terms, true
}

// --- skip-accelerated AND ----------------------------------------------------

type termPostings struct {
	term     string
	df       uint32
	offset   uint64
	postings []Posting
	skip     PostingSkipList
}

// andTerms computes the intersection of terms' posting lists, ordering
// terms by ascending df (most selective first) and using each term's skip
// list to accelerate the pairwise galloping intersection, per spec.md
// §4.8.
func (idx *Index) andTerms(terms []string) (*roaring.Bitmap, error) {
	infos := make([]termPostings, 0, len(terms))
	for _, t := range terms {
		entry, ok := idx.vocab[t]
		if !ok {
			// Term not in vocabulary: its literal is the empty set, so
			// the whole AND is empty (spec.md §4.8).
			return roaring.New(), nil
		}
		postings, err := idx.Postings(t)
		if err != nil {
			return nil, err
		}
		skip, err := idx.SkipList(t)
		if err != nil {
			return nil, err
		}
		infos = append(infos, termPostings{term: t, df: entry.DF, offset: entry.Offset, postings: postings, skip: skip})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].df < infos[j].df })

	running := make([]uint32, len(infos[0].postings))
	for i, p := range infos[0].postings {
		running[i] = p.DocID
	}

	for i := 1; i < len(infos) && len(running) > 0; i++ {
		running = gallopingIntersect(running, infos[i])
	}

	bm := roaring.New()
	bm.AddMany(running)
	return bm, nil
}

// gallopingIntersect intersects a (a plain, already-intersected DocId list
// with no backing skip list of its own) against b (a term's real posting
// list, which does have one). Cursor b uses b's skip list to jump forward
// whenever it trails a; cursor a advances one posting at a time since it
// has no skip structure to consult.
func gallopingIntersect(a []uint32, b termPostings) []uint32 {
	var out []uint32
	i, j := 0, 0
	cursor := NewSkipCursor(b.skip)

	for i < len(a) && j < len(b.postings) {
		av := a[i]
		bv := b.postings[j].DocID
		switch {
		case av == bv:
			out = append(out, av)
			i++
			j++
		case av < bv:
			i++
		default: // bv < av: try to skip b forward
			currentOffset := int64(b.offset) + int64(j)*PostingSize
			newOffset, ok := cursor.AdvanceTo(av, currentOffset)
			if ok {
				j = int((newOffset - int64(b.offset)) / PostingSize)
				continue
			}
			j++
		}
	}
	return out
}
