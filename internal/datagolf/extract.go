package datagolf

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

// ErrNoData means a page did not carry the expected embedded payload.
var ErrNoData = errors.New("no embedded data")

// assignRe finds "name = " assignments in inline scripts. Group 1 is the name.
var assignRe = regexp.MustCompile(`(?:\bvar\s+|\blet\s+|\bconst\s+|\bwindow\.)?\b([A-Za-z_$][\w$]*)\s*=\s*[\[{]`)

// embedded holds the JSON literals assigned to top-level variables in a
// page's inline scripts, keyed by variable name. The first assignment wins.
type embedded map[string][]byte

func parseEmbedded(r io.Reader) (embedded, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}

	out := embedded{}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			return
		}
		text := s.Text()
		for _, m := range assignRe.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			if _, seen := out[name]; seen {
				continue
			}
			start := m[1] - 1 // the opening bracket
			if lit, ok := cutLiteral(text[start:]); ok {
				out[name] = []byte(lit)
			}
		}
	})
	return out, nil
}

// decode unmarshals the named literal into target.
func (e embedded) decode(name string, target any) error {
	raw, ok := e[name]
	if !ok {
		return errors.Wrapf(ErrNoData, "%s missing", name)
	}
	if err := sonic.Unmarshal(sanitizeJS(raw), target); err != nil {
		return errors.Wrapf(err, "decode %s", name)
	}
	return nil
}

func (e embedded) has(name string) bool {
	_, ok := e[name]
	return ok
}

// cutLiteral returns the balanced {...} or [...] literal at the start of s,
// skipping brackets inside quoted strings.
func cutLiteral(s string) (string, bool) {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return "", false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// sanitizeJS maps the bare JavaScript tokens that appear in scraped payloads
// onto JSON. Only tokens outside strings are touched.
func sanitizeJS(b []byte) []byte {
	if !bytes.Contains(b, []byte("NaN")) && !bytes.Contains(b, []byte("undefined")) && !bytes.Contains(b, []byte("Infinity")) {
		return b
	}
	var sb strings.Builder
	sb.Grow(len(b))
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		if quote != 0 {
			sb.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(b) {
					i++
					sb.WriteByte(b[i])
				}
			case quote:
				quote = 0
			}
			continue
		}
		if c == '"' {
			quote = c
			sb.WriteByte(c)
			continue
		}
		if tok, ok := bareToken(b[i:]); ok {
			sb.WriteString("null")
			i += len(tok) - 1
			continue
		}
		sb.WriteByte(c)
	}
	return []byte(sb.String())
}

func bareToken(b []byte) (string, bool) {
	for _, tok := range []string{"-Infinity", "Infinity", "NaN", "undefined"} {
		if bytes.HasPrefix(b, []byte(tok)) {
			return tok, true
		}
	}
	return "", false
}
