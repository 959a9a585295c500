package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// NormalizeText strips non-printable characters and collapses runs of
// whitespace into a single space, the way a browser renders text.
func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text returns the normalized text of every node in the selection.
func Text(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		out.WriteString(GetText(n))
	}
	return NormalizeText(out.String())
}

// Option is a single (value, text) pair of a <select> element.
type Option struct {
	Value string
	Text  string
}

// GetOptions collects the value attribute and normalized text of each
// element in `sel`.
func GetOptions(sel *goquery.Selection) []Option {
	options := make([]Option, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		options = append(options, Option{
			Value: s.AttrOr("value", ""),
			Text:  Text(s),
		})
	})
	return options
}
