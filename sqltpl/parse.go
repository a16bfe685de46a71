package sqltpl

import (
	"fmt"
	"strings"
)

// parser is a single-pass recursive descent scanner over template text.
// Anything that does not look exactly like a marker or a directive stays
// literal SQL, so comparison operators and braces in string literals pass
// through untouched.
type parser struct {
	name string
	src  string
	pos  int
}

func parse(name, src string) ([]node, error) {
	p := &parser{name: name, src: src}
	return p.parseNodes("")
}

// parseNodes consumes nodes until EOF or until the named closing tag
// (</if> or </for>) is reached. The closing tag itself is consumed.
func (p *parser) parseNodes(closing string) ([]node, error) {
	var nodes []node
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, textNode(text.String()))
			text.Reset()
		}
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]

		switch {
		case c == '#' && p.peekAt(p.pos+1) == '{':
			end := strings.IndexByte(p.src[p.pos+2:], '}')
			if end < 0 {
				return nil, p.errorf("unterminated #{ marker")
			}
			path := strings.TrimSpace(p.src[p.pos+2 : p.pos+2+end])
			if !validPath(path) {
				return nil, p.errorf("invalid marker path %q", path)
			}
			flush()
			nodes = append(nodes, varNode{path: path})
			p.pos += 2 + end + 1

		case c == '{':
			// Only {ident.ident} is a marker, any other brace is literal.
			if path, width, ok := p.bracePath(); ok {
				flush()
				nodes = append(nodes, varNode{path: path})
				p.pos += width
			} else {
				text.WriteByte(c)
				p.pos++
			}

		case c == '<':
			switch {
			case p.hasTag("</if>"):
				if closing != "</if>" {
					return nil, p.errorf("</if> without matching <if>")
				}
				flush()
				p.pos += len("</if>")
				return nodes, nil

			case p.hasTag("</for>"):
				if closing != "</for>" {
					return nil, p.errorf("</for> without matching <for>")
				}
				flush()
				p.pos += len("</for>")
				return nodes, nil

			case p.hasDirective("if"):
				flush()
				n, err := p.parseIf()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)

			case p.hasDirective("for"):
				flush()
				n, err := p.parseFor()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)

			case p.hasDirective("include"):
				flush()
				n, err := p.parseInclude()
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)

			default:
				text.WriteByte(c)
				p.pos++
			}

		default:
			text.WriteByte(c)
			p.pos++
		}
	}

	if closing != "" {
		return nil, p.errorf("missing %s", closing)
	}
	flush()
	return nodes, nil
}

func (p *parser) parseIf() (node, error) {
	attrs, err := p.parseTag("if", false)
	if err != nil {
		return nil, err
	}
	raw, ok := attrs["test"]
	if !ok {
		return nil, p.errorf("<if> requires a test attribute")
	}
	test, err := p.parseTest(raw)
	if err != nil {
		return nil, err
	}
	body, err := p.parseNodes("</if>")
	if err != nil {
		return nil, err
	}
	return ifNode{test: test, body: body}, nil
}

func (p *parser) parseFor() (node, error) {
	attrs, err := p.parseTag("for", false)
	if err != nil {
		return nil, err
	}
	item, collection := attrs["item"], attrs["collection"]
	if item == "" || collection == "" {
		return nil, p.errorf("<for> requires item and collection attributes")
	}
	if !validIdent(item) {
		return nil, p.errorf("invalid for item %q", item)
	}
	if !validPath(collection) {
		return nil, p.errorf("invalid for collection %q", collection)
	}
	body, err := p.parseNodes("</for>")
	if err != nil {
		return nil, err
	}
	return forNode{
		item:       item,
		collection: collection,
		open:       attrs["open"],
		sep:        attrs["sep"],
		close:      attrs["close"],
		body:       body,
	}, nil
}

func (p *parser) parseInclude() (node, error) {
	attrs, err := p.parseTag("include", true)
	if err != nil {
		return nil, err
	}
	refid := attrs["refid"]
	if refid == "" {
		return nil, p.errorf("<include> requires a refid attribute")
	}
	return includeNode{refid: refid}, nil
}

// parseTag consumes `<name attr="v" ...>` from the current position. When
// selfClosed is set the tag must end with `/>`.
func (p *parser) parseTag(name string, selfClosed bool) (map[string]string, error) {
	p.pos += len("<") + len(name)
	attrs := map[string]string{}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated <%s> tag", name)
		}
		if p.src[p.pos] == '>' {
			if selfClosed {
				return nil, p.errorf("<%s> must be self-closing", name)
			}
			p.pos++
			return attrs, nil
		}
		if p.src[p.pos] == '/' {
			if !selfClosed || p.peekAt(p.pos+1) != '>' {
				return nil, p.errorf("malformed <%s> tag", name)
			}
			p.pos += 2
			return attrs, nil
		}

		eq := strings.IndexByte(p.src[p.pos:], '=')
		if eq < 0 {
			return nil, p.errorf("malformed attribute in <%s>", name)
		}
		key := strings.TrimSpace(p.src[p.pos : p.pos+eq])
		p.pos += eq + 1
		if p.pos >= len(p.src) || p.src[p.pos] != '"' {
			return nil, p.errorf("attribute %s in <%s> must be double-quoted", key, name)
		}
		p.pos++
		end := strings.IndexByte(p.src[p.pos:], '"')
		if end < 0 {
			return nil, p.errorf("unterminated attribute %s in <%s>", key, name)
		}
		attrs[key] = p.src[p.pos : p.pos+end]
		p.pos += end + 1
	}
}

// parseTest understands the test expressions the renderer evaluates:
// `path`, `path == null`, `path != null`, `path == 'lit'`, `path != 'lit'`.
func (p *parser) parseTest(s string) (testExpr, error) {
	s = strings.TrimSpace(s)
	op, idx := "", -1
	for _, cand := range []string{"!=", "=="} {
		if i := strings.Index(s, cand); i >= 0 {
			op, idx = cand, i
			break
		}
	}

	if op == "" {
		if !validPath(s) {
			return testExpr{}, p.errorf("unsupported test expression %q", s)
		}
		return testExpr{path: s, op: opTruthy}, nil
	}

	left := strings.TrimSpace(s[:idx])
	right := strings.TrimSpace(s[idx+2:])
	if !validPath(left) {
		return testExpr{}, p.errorf("unsupported test expression %q", s)
	}

	switch {
	case right == "null":
		if op == "==" {
			return testExpr{path: left, op: opIsNull}, nil
		}
		return testExpr{path: left, op: opNotNull}, nil
	case len(right) >= 2 && right[0] == '\'' && right[len(right)-1] == '\'':
		lit := right[1 : len(right)-1]
		if op == "==" {
			return testExpr{path: left, op: opEqLit, lit: lit}, nil
		}
		return testExpr{path: left, op: opNeqLit, lit: lit}, nil
	}
	return testExpr{}, p.errorf("unsupported test expression %q", s)
}

// bracePath reports whether the text at the current position is a bare
// {path} marker, returning the path and total width including braces.
func (p *parser) bracePath() (string, int, bool) {
	end := strings.IndexByte(p.src[p.pos+1:], '}')
	if end < 0 {
		return "", 0, false
	}
	path := p.src[p.pos+1 : p.pos+1+end]
	if !validPath(path) {
		return "", 0, false
	}
	return path, end + 2, true
}

func (p *parser) hasTag(tag string) bool {
	return strings.HasPrefix(p.src[p.pos:], tag)
}

// hasDirective reports whether the current position starts directive
// `name`, requiring a boundary so `<iface` or `<format` stay literal.
func (p *parser) hasDirective(name string) bool {
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, "<"+name) {
		return false
	}
	rest = rest[1+len(name):]
	if rest == "" {
		return false
	}
	switch rest[0] {
	case ' ', '\t', '\n', '\r':
		return true
	case '>', '/':
		return name == "include"
	}
	return false
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peekAt(i int) byte {
	if i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{
		Template: p.name,
		Detail:   fmt.Sprintf(format, args...),
		Snippet:  snippet(p.src, p.pos),
	}
}

func snippet(src string, pos int) string {
	if pos > len(src) {
		pos = len(src)
	}
	end := pos + 24
	if end > len(src) {
		end = len(src)
	}
	return src[pos:end]
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func validPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !validIdent(seg) {
			return false
		}
	}
	return true
}
