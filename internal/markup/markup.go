// Package markup reconstructs plain text from the restricted HTML dialect
// used in Teams message bodies. The vocabulary is small and known (p, a, br,
// blockquote with the Reply/Forward item types, strong, span), so parsing is
// done by direct scanning over that vocabulary instead of general HTML
// parsing. Reply and forward quotes are resolved recursively so nested
// quoting keeps its structure.
package markup

import (
	"fmt"
	"strings"

	"github.com/gcanale/tmx/internal/directory"
)

const (
	replyItemType   = `itemtype="http://schema.skype.com/Reply"`
	forwardItemType = `itemtype="http://schema.skype.com/Forward"`
)

// Original carries forwarded-message context from the message side channel:
// the original sender and the formatted client arrival time.
type Original struct {
	Sender string
	Time   string
}

// Renderer turns markup fragments into plain text, consulting the contact
// directory to enrich quoted participant identifiers.
type Renderer struct {
	contacts *directory.Directory
}

func NewRenderer(contacts *directory.Directory) *Renderer {
	return &Renderer{contacts: contacts}
}

// Render produces the plain-text form of a markup fragment. orig is only
// consulted when the fragment holds a forward quote; pass nil otherwise.
func (r *Renderer) Render(markup string, orig *Original) string {
	if markup == "" {
		return ""
	}
	if url, ok := soleLink(markup); ok {
		return url
	}
	if q, ok := findQuote(markup, replyItemType); ok {
		return r.renderReply(q)
	}
	if q, ok := findQuote(markup, forwardItemType); ok {
		return r.renderForward(q, orig)
	}
	return cleanup(markup)
}

type quote struct {
	inner  string // blockquote body
	before string // markup preceding the blockquote
	after  string // markup following the blockquote
}

// renderReply composes "In reply to <sender> (<name>):" followed by the
// quoted text and the trailing reply, with the label in bold codepoints.
func (r *Renderer) renderReply(q quote) string {
	sender, hasSender := strongRun(q.inner)
	quoted := strings.TrimSpace(r.Render(stripStrongRuns(q.inner), nil))
	trailing := strings.TrimSpace(r.Render(q.after, nil))

	var out string
	if hasSender {
		label := fmt.Sprintf("In reply to %s:", sender)
		if id, ok := spanItemID(q.inner); ok {
			if name, found := r.contacts.Lookup(id); found {
				label = fmt.Sprintf("In reply to %s (%s):", sender, name)
			}
		}
		out = Bold(label) + " " + quoted + "\n\n" + trailing
	} else {
		out = Bold("In reply to message") + ": " + quoted + "\n\n" + trailing
	}

	if strings.TrimSpace(q.before) != "" {
		out = strings.TrimSpace(r.Render(q.before, nil)) + "\n\n" + out
	}
	return strings.TrimSpace(out)
}

// renderForward composes the "Forwarded message:" label, preceded by an
// "Original: <sender> <time>" line when the side channel carries the
// original-message context.
func (r *Renderer) renderForward(q quote, orig *Original) string {
	quoted := strings.TrimSpace(r.Render(q.inner, nil))
	trailing := strings.TrimSpace(r.Render(q.after, nil))

	info := ""
	if orig != nil && (orig.Sender != "" || orig.Time != "") {
		info = strings.TrimSpace("Original: "+orig.Sender+" "+orig.Time) + "\n"
	}

	out := info + Bold("Forwarded message:") + " " + quoted
	if strings.TrimSpace(q.before) != "" {
		out = strings.TrimSpace(r.Render(q.before, nil)) + "\n\n" + out
	}
	if trailing != "" {
		out += "\n\n" + trailing
	}
	return strings.TrimSpace(out)
}

// soleLink matches a fragment that is nothing but one anchor, optionally
// wrapped in a single paragraph. The link target is the whole rendering; the
// label is discarded.
func soleLink(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if hasPrefixFold(t, "<p") {
		end := strings.IndexByte(t, '>')
		if end < 0 {
			return "", false
		}
		t = strings.TrimSpace(t[end+1:])
		if hasSuffixFold(t, "</p>") {
			t = strings.TrimSpace(t[:len(t)-4])
		}
	}
	if !hasPrefixFold(t, "<a ") {
		return "", false
	}
	tagEnd := strings.IndexByte(t, '>')
	if tagEnd < 0 {
		return "", false
	}
	href, ok := attrValue(t[:tagEnd], "href")
	if !ok || href == "" {
		return "", false
	}
	rest := t[tagEnd+1:]
	close := indexFold(rest, "</a>")
	if close < 0 {
		return "", false
	}
	label := rest[:close]
	if label == "" || strings.ContainsRune(label, '<') {
		return "", false
	}
	if strings.TrimSpace(rest[close+4:]) != "" {
		return "", false
	}
	return href, true
}

// findQuote locates the first blockquote carrying the given item type and
// splits the fragment around it. The body runs to the first closing
// blockquote tag, preserving the reference nesting semantics.
func findQuote(s, itemType string) (quote, bool) {
	searchFrom := 0
	for {
		start := indexFold(s[searchFrom:], "<blockquote")
		if start < 0 {
			return quote{}, false
		}
		start += searchFrom
		tagEnd := strings.IndexByte(s[start:], '>')
		if tagEnd < 0 {
			return quote{}, false
		}
		tagEnd += start
		if indexFold(s[start:tagEnd], itemType) >= 0 {
			closing := indexFold(s[tagEnd:], "</blockquote>")
			if closing < 0 {
				return quote{}, false
			}
			closing += tagEnd
			return quote{
				inner:  s[tagEnd+1 : closing],
				before: s[:start],
				after:  s[closing+len("</blockquote>"):],
			}, true
		}
		searchFrom = tagEnd + 1
	}
}

// strongRun returns the text of the first strong element whose body holds no
// nested tags; the reply sender name is carried this way.
func strongRun(s string) (string, bool) {
	from := 0
	for {
		start := indexFold(s[from:], "<strong")
		if start < 0 {
			return "", false
		}
		start += from
		tagEnd := strings.IndexByte(s[start:], '>')
		if tagEnd < 0 {
			return "", false
		}
		tagEnd += start
		close := indexFold(s[tagEnd:], "</strong>")
		if close < 0 {
			return "", false
		}
		close += tagEnd
		body := s[tagEnd+1 : close]
		if body != "" && !strings.ContainsRune(body, '<') {
			return strings.TrimSpace(body), true
		}
		from = close + len("</strong>")
	}
}

// stripStrongRuns removes every tag-free strong element, body included.
func stripStrongRuns(s string) string {
	var b strings.Builder
	for {
		start := indexFold(s, "<strong")
		if start < 0 {
			break
		}
		tagEnd := strings.IndexByte(s[start:], '>')
		if tagEnd < 0 {
			break
		}
		tagEnd += start
		close := indexFold(s[tagEnd:], "</strong>")
		if close < 0 {
			break
		}
		close += tagEnd
		body := s[tagEnd+1 : close]
		b.WriteString(s[:start])
		if body == "" || strings.ContainsRune(body, '<') {
			// not a plain run, keep it
			b.WriteString(s[start : close+len("</strong>")])
		}
		s = s[close+len("</strong>"):]
	}
	b.WriteString(s)
	return b.String()
}

// spanItemID pulls the itemid attribute from the first span open tag that
// carries one; reply quotes reference the quoted participant this way.
func spanItemID(s string) (string, bool) {
	from := 0
	for {
		start := indexFold(s[from:], "<span")
		if start < 0 {
			return "", false
		}
		start += from
		tagEnd := strings.IndexByte(s[start:], '>')
		if tagEnd < 0 {
			return "", false
		}
		tagEnd += start
		if id, ok := attrValueLoose(s[start:tagEnd], "itemid"); ok && id != "" {
			return id, true
		}
		from = tagEnd + 1
	}
}

// cleanup is the generic fallback: anchors collapse to their targets, breaks
// and paragraph ends become newlines, remaining tags are stripped, entities
// are decoded, and any link target not already present in the text is
// appended on its own line.
func cleanup(s string) string {
	hrefs := collectHrefs(s)
	s = anchorsToTargets(s)

	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = closeParagraphs(s)
	s = stripTags(s)
	s = decodeEntities(s)
	s = unescapeQuotes(s)
	s = unescapeQuotes(s)

	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, `\xa0`, " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, `\r\n`, "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.TrimSpace(s)

	var missing []string
	for _, h := range hrefs {
		if !strings.Contains(s, h) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		if s == "" {
			return strings.Join(missing, "\n")
		}
		return s + "\n" + strings.Join(missing, "\n")
	}
	return s
}

// collectHrefs gathers the target of every anchor open tag.
func collectHrefs(s string) []string {
	var hrefs []string
	from := 0
	for {
		start := indexFold(s[from:], "<a ")
		if start < 0 {
			return hrefs
		}
		start += from
		tagEnd := strings.IndexByte(s[start:], '>')
		if tagEnd < 0 {
			return hrefs
		}
		tagEnd += start
		if href, ok := attrValue(s[start:tagEnd], "href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
		from = tagEnd + 1
	}
}

// anchorsToTargets replaces each anchor whose label holds no nested tags with
// its target. Anchors with nested markup are left for the tag stripper; their
// targets still surface through the appended href list.
func anchorsToTargets(s string) string {
	var b strings.Builder
	for {
		start := indexFold(s, "<a ")
		if start < 0 {
			break
		}
		tagEnd := strings.IndexByte(s[start:], '>')
		if tagEnd < 0 {
			break
		}
		tagEnd += start
		href, ok := attrValue(s[start:tagEnd], "href")
		if !ok || href == "" {
			b.WriteString(s[:tagEnd+1])
			s = s[tagEnd+1:]
			continue
		}
		close := indexFold(s[tagEnd:], "</a>")
		if close < 0 {
			b.WriteString(s[:tagEnd+1])
			s = s[tagEnd+1:]
			continue
		}
		close += tagEnd
		label := s[tagEnd+1 : close]
		if strings.ContainsRune(label, '<') {
			b.WriteString(s[:tagEnd+1])
			s = s[tagEnd+1:]
			continue
		}
		b.WriteString(s[:start])
		b.WriteString(href)
		s = s[close+4:]
	}
	b.WriteString(s)
	return b.String()
}

// closeParagraphs maps every </p> (allowing internal whitespace) to a newline.
func closeParagraphs(s string) string {
	var b strings.Builder
	for {
		i := indexFold(s, "</p")
		if i < 0 {
			break
		}
		rest := s[i+3:]
		j := 0
		for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t' || rest[j] == '\n' || rest[j] == '\r') {
			j++
		}
		if j < len(rest) && rest[j] == '>' {
			b.WriteString(s[:i])
			b.WriteString("\n")
			s = rest[j+1:]
			continue
		}
		b.WriteString(s[:i+3])
		s = rest
	}
	b.WriteString(s)
	return b.String()
}

// stripTags removes every <...> span with at least one character inside.
func stripTags(s string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '<')
		if open < 0 {
			break
		}
		close := strings.IndexByte(s[open:], '>')
		if close < 0 {
			break
		}
		close += open
		if close == open+1 {
			// literal "<>", keep it
			b.WriteString(s[:open+1])
			s = s[open+1:]
			continue
		}
		b.WriteString(s[:open])
		s = s[close+1:]
	}
	b.WriteString(s)
	return b.String()
}

// decodeEntities handles the five standard entities.
func decodeEntities(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	return s
}

// unescapeQuotes collapses literal backslash-quote sequences.
func unescapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	return s
}

// attrValue extracts name="value" from a tag's attribute text.
func attrValue(tag, name string) (string, bool) {
	i := indexFold(tag, name+`="`)
	if i < 0 {
		return "", false
	}
	rest := tag[i+len(name)+2:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// attrValueLoose also accepts whitespace around the equals sign.
func attrValueLoose(tag, name string) (string, bool) {
	i := indexFold(tag, name)
	if i < 0 {
		return "", false
	}
	rest := tag[i+len(name):]
	j := 0
	for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t') {
		j++
	}
	if j >= len(rest) || rest[j] != '=' {
		return "", false
	}
	j++
	for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t') {
		j++
	}
	if j >= len(rest) || rest[j] != '"' {
		return "", false
	}
	rest = rest[j+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func indexFold(s, sub string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(sub))
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// Bold substitutes each Latin letter and digit with its mathematical bold
// codepoint. The substitution is cosmetic but must stay byte-stable: review
// tooling matches on the exact rendered labels.
func Bold(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(0x1D400 + r - 'A')
		case r >= 'a' && r <= 'z':
			b.WriteRune(0x1D41A + r - 'a')
		case r >= '0' && r <= '9':
			b.WriteRune(0x1D7CE + r - '0')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
