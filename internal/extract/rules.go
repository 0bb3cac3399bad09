package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Match is what a rule recognized on a single line.
type Match struct {
	Name       string
	Prefix     string
	Handler    string
	Opcode     string
	Annotation string
}

// Rule recognizes one naming convention. Rules are tried in order and the
// first one that matches a line claims it.
type Rule struct {
	Name   string
	Family Family
	Kind   Kind
	Match  func(line string) (Match, bool)
}

// RuleOptions configures the rule table.
type RuleOptions struct {
	AuxiliaryPrefixes []string
	RegistrationCalls []string
}

// definitionPattern matches a one-line procedure header that is not a
// prototype: qualifiers, return type, name, parameter list, then an optional
// opening brace. Multi-word return types such as "const char*" or
// "unsigned int" are qualifiers followed by the type name. A trailing ';'
// never matches.
var definitionPattern = regexp.MustCompile(
	`^\s*(?:(?:static|inline|extern|const|volatile|unsigned|signed|long|short|struct|enum)\s+)*` +
		`[A-Za-z_][\w:<>]*(?:\s+const)?(?:\s*[*&]+\s*|\s+)([A-Za-z_]\w*)\s*\(([^()]*)\)\s*(?:const\s*)?(?:\{.*)?$`)

var argCountParam = regexp.MustCompile(`^int\s+[A-Za-z_]\w*$`)

type definition struct {
	name   string
	params []string
}

func parseDefinition(line string) (definition, bool) {
	if strings.HasSuffix(strings.TrimSpace(line), ";") {
		return definition{}, false
	}
	m := definitionPattern.FindStringSubmatch(line)
	if m == nil {
		return definition{}, false
	}
	switch m[1] {
	case "if", "while", "for", "switch", "return", "sizeof":
		return definition{}, false
	}

	var params []string
	for _, p := range strings.Split(m[2], ",") {
		if p = strings.TrimSpace(p); p != "" && p != "void" {
			params = append(params, p)
		}
	}
	return definition{name: m[1], params: params}, true
}

// prefixedUpper reports whether name is prefix followed by an uppercase letter.
func prefixedUpper(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	return unicode.IsUpper(rune(name[len(prefix)]))
}

func prefixedWord(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && len(name) > len(prefix)
}

func oneArg(match func(string) (string, bool)) func(string) (Match, bool) {
	return func(line string) (Match, bool) {
		def, ok := parseDefinition(line)
		if !ok || len(def.params) != 1 {
			return Match{}, false
		}
		prefix, ok := match(def.name)
		if !ok {
			return Match{}, false
		}
		return Match{Name: def.name, Prefix: prefix}, true
	}
}

// DefaultRules returns the rule table in priority order.
func DefaultRules(opts RuleOptions) []Rule {
	rules := []Rule{
		{
			Name: "op-camel", Family: FamilyOpCamel, Kind: DefinitionSite,
			Match: oneArg(func(name string) (string, bool) {
				return "op", prefixedUpper(name, "op")
			}),
		},
		{
			Name: "op-snake", Family: FamilyOpSnake, Kind: DefinitionSite,
			Match: oneArg(func(name string) (string, bool) {
				return "op_", prefixedWord(name, "op_")
			}),
		},
		{
			Name: "op-underscore", Family: FamilyOpUnderscore, Kind: DefinitionSite,
			Match: oneArg(func(name string) (string, bool) {
				switch {
				case prefixedWord(name, "_op_"):
					return "_op_", true
				case prefixedUpper(name, "_op"):
					return "_op", true
				}
				return "", false
			}),
		},
		{
			Name: "op-argcount", Family: FamilyOpArgCount, Kind: DefinitionSite,
			Match: func(line string) (Match, bool) {
				def, ok := parseDefinition(line)
				if !ok || len(def.params) != 2 || !argCountParam.MatchString(def.params[1]) {
					return Match{}, false
				}
				for _, prefix := range []string{"mf_", "op_", "_op_"} {
					if prefixedWord(def.name, prefix) {
						return Match{Name: def.name, Prefix: prefix}, true
					}
				}
				if prefixedUpper(def.name, "op") {
					return Match{Name: def.name, Prefix: "op"}, true
				}
				return Match{}, false
			},
		},
	}

	if len(opts.AuxiliaryPrefixes) > 0 {
		prefixes := append([]string(nil), opts.AuxiliaryPrefixes...)
		rules = append(rules, Rule{
			Name: "auxiliary", Family: FamilyAuxiliary, Kind: DefinitionSite,
			Match: func(line string) (Match, bool) {
				def, ok := parseDefinition(line)
				if !ok {
					return Match{}, false
				}
				for _, prefix := range prefixes {
					if prefixedWord(def.name, prefix) {
						return Match{Name: def.name, Prefix: prefix}, true
					}
				}
				return Match{}, false
			},
		})
	}

	if len(opts.RegistrationCalls) > 0 {
		quoted := make([]string, len(opts.RegistrationCalls))
		for i, c := range opts.RegistrationCalls {
			quoted[i] = regexp.QuoteMeta(c)
		}
		pattern := regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") +
			`)\s*\(\s*(0[xX][0-9A-Fa-f]+|\d+)\s*,\s*&?([A-Za-z_]\w*)\s*\)\s*;\s*(?://\s*(.*?)\s*)?$`)
		rules = append(rules, Rule{
			Name: "registration", Family: FamilyRegistration, Kind: RegistrationSite,
			Match: func(line string) (Match, bool) {
				m := pattern.FindStringSubmatch(line)
				if m == nil {
					return Match{}, false
				}
				out := Match{Name: m[2], Handler: m[2], Opcode: m[1]}
				if IsIdentifier(m[3]) {
					out.Annotation = m[3]
				}
				return out, true
			},
		})
	}

	return rules
}
