package extract

// Options configures an Extractor.
type Options struct {
	Rules           []Rule
	CommentLookback int
	ExtentFallback  int
}

// Extractor applies the rule table to files in scan order. It is stateful:
// sequence numbers and the set of known opcode handlers carry across files.
type Extractor struct {
	rules    []Rule
	lookback int
	fallback int

	seq     int
	opcodes map[string]struct{}
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	return &Extractor{
		rules:    opts.Rules,
		lookback: opts.CommentLookback,
		fallback: opts.ExtentFallback,
		opcodes:  make(map[string]struct{}),
	}
}

// Lines extracts symbols from one file. rel is the snapshot-relative path
// recorded in each Location.
func (e *Extractor) Lines(rel string, lines []string) []Symbol {
	var out []Symbol

	for i := range lines {
		if sym, ok := e.match(rel, lines, i); ok {
			sym.Seq = e.next()
			out = append(out, sym)
		}
	}

	return out
}

// match applies the first matching rule to line i.
func (e *Extractor) match(rel string, lines []string, i int) (Symbol, bool) {
	for _, rule := range e.rules {
		m, ok := rule.Match(lines[i])
		if !ok {
			continue
		}

		sym := Symbol{
			Name:     m.Name,
			Location: Location{File: rel, StartLine: i + 1, EndLine: i + 1},
			Kind:     rule.Kind,
			Family:   rule.Family,
			Prefix:   m.Prefix,
		}

		switch rule.Kind {
		case DefinitionSite:
			// auxiliary routines already captured as opcode handlers are not recorded twice
			if _, seen := e.opcodes[m.Name]; seen && rule.Family == FamilyAuxiliary {
				return Symbol{}, false
			}
			if rule.Family.IsOpcode() {
				e.opcodes[m.Name] = struct{}{}
			}
			sym.EndLine = Extent(lines, i, e.fallback)
			sym.Comment = CommentAlias(lines, i, e.lookback)
		case RegistrationSite:
			sym.Handler = m.Handler
			sym.Opcode = m.Opcode
			sym.Annotation = m.Annotation
		}
		return sym, true
	}
	return Symbol{}, false
}

// File is Lines over raw file contents.
func (e *Extractor) File(rel string, data []byte) []Symbol {
	return e.Lines(rel, SplitLines(data))
}

func (e *Extractor) next() int {
	e.seq++
	return e.seq
}
