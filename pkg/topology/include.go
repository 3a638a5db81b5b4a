package topology

import "strings"

// IncludeKey is the reserved mapping key holding an include reference.
const IncludeKey = "include"

// Reference is a parsed include spec:
//
//	name
//	name[filterkey: filtervalue]
//	name[filterkey: filtervalue][extractkey]
//
// An empty extractkey ("name[fk: fv][]") is the same as omitting it.
type Reference struct {
	Name        string
	FilterKey   string
	FilterValue string
	ExtractKey  string
}

// HasFilter reports whether the reference carries a filter clause.
func (r Reference) HasFilter() bool { return r.FilterKey != "" }

// HasExtract reports whether the reference carries an extraction key.
func (r Reference) HasExtract() bool { return r.ExtractKey != "" }

// String renders the reference back into spec form.
func (r Reference) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if r.HasFilter() {
		sb.WriteString("[" + r.FilterKey + ": " + r.FilterValue + "]")
		if r.HasExtract() {
			sb.WriteString("[" + r.ExtractKey + "]")
		}
	}
	return sb.String()
}

// ParseReference parses an include spec. The most specific form is tried
// first; a spec matching no form fails with MalformedInclude.
func ParseReference(spec string) (Reference, error) {
	if ref, ok := parseExtraction(spec); ok {
		return ref, nil
	}
	if ref, ok := parseFiltered(spec); ok {
		return ref, nil
	}
	if isIdent(spec) && spec != "" {
		return Reference{Name: spec}, nil
	}
	return Reference{}, newError(MalformedInclude, spec, malformedMessage(spec))
}

func malformedMessage(spec string) string {
	return "Included file with spec = " + spec + " did not yield any match to a topology file. " +
		"This is probably a malformed name for the include file."
}

// parseExtraction matches name[fk: fv][ek]. An empty ek is accepted and
// means no extraction.
func parseExtraction(spec string) (Reference, bool) {
	if !strings.HasSuffix(spec, "]") {
		return Reference{}, false
	}
	open := strings.LastIndexByte(spec, '[')
	if open < 0 {
		return Reference{}, false
	}
	ek := spec[open+1 : len(spec)-1]
	if !isIdent(ek) {
		return Reference{}, false
	}
	ref, ok := parseFiltered(spec[:open])
	if !ok {
		return Reference{}, false
	}
	ref.ExtractKey = ek
	return ref, true
}

// parseFiltered matches name[fk: fv].
func parseFiltered(spec string) (Reference, bool) {
	open := strings.IndexByte(spec, '[')
	if open <= 0 || !strings.HasSuffix(spec, "]") {
		return Reference{}, false
	}
	name := spec[:open]
	if !isIdent(name) {
		return Reference{}, false
	}
	clause := spec[open+1 : len(spec)-1]
	fk, fv, found := strings.Cut(clause, ": ")
	if !found || fk == "" || !isIdent(fk) || !isIdent(fv) {
		return Reference{}, false
	}
	return Reference{Name: name, FilterKey: fk, FilterValue: fv}, true
}

// isIdent reports whether s consists only of letters, digits and underscores.
func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
