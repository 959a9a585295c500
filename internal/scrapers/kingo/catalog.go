package kingo

import (
	"context"
	"errors"
	"fmt"
	"kingo-scraper/pkg/htmlutil"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

// TermTable maps term codes to their labels.
type TermTable map[string]string

// Codes returns the term codes in sorted order.
func (t TermTable) Codes() []string {
	return sortedKeys(t)
}

// SubjectTable maps the subject codes of a term to their labels.
type SubjectTable map[string]string

// Codes returns the subject codes in sorted order.
func (t SubjectTable) Codes() []string {
	return sortedKeys(t)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DumpTermList lists every term offered by the class info page. A page
// without the term form yields an empty table.
func (c *Client) DumpTermList(ctx context.Context) (TermTable, error) {
	queryPage := c.site.Pages.ClassInfoQuery

	page, err := c.session.Get(ctx, queryPage, queryPage)
	if err != nil {
		return nil, err
	}

	terms := TermTable{}
	form := byId(page.Doc.Selection, c.site.Elements.TermForm)
	if form.Length() == 0 {
		c.tel.ReportBroken(
			report_client_dump_term_list,
			fmt.Errorf("term form #%s not found", c.site.Elements.TermForm),
			page.Url,
		)
		return terms, nil
	}

	for _, option := range htmlutil.GetOptions(form.Find("option")) {
		terms[option.Value] = option.Text
	}
	c.tel.ReportCount(report_client_dump_term_list, int64(len(terms)))
	return terms, nil
}

// DumpCourseList lists the subjects of a term. It returns a nil table when
// the response does not have the expected shape.
func (c *Client) DumpCourseList(ctx context.Context, termCode string) (SubjectTable, error) {
	target := c.site.SubjectListUrl(termCode)

	page, err := c.session.Get(ctx, target, c.site.Pages.ClassInfoQuery)
	if err != nil {
		return nil, err
	}

	subjects, err := parseSubjectList(page.Doc)
	if err != nil {
		c.tel.ReportBroken(report_client_dump_course_list, err, page.Url)
		return nil, nil
	}
	c.tel.ReportCount(report_client_dump_course_list, int64(len(subjects)))
	return subjects, nil
}

// parseSubjectList reads the subject selector the subject list page writes
// from inside its first script block.
func parseSubjectList(doc *goquery.Document) (SubjectTable, error) {
	script := doc.Find("script").First()
	if script.Length() == 0 {
		return nil, errors.New("no script block in subject list")
	}

	content := script.Text()
	start := strings.Index(content, "<")
	end := strings.LastIndex(content, ">")
	if start < 0 || end < start {
		return nil, errors.New("no markup in subject list script")
	}

	fragment, err := goquery.NewDocumentFromReader(strings.NewReader(content[start : end+1]))
	if err != nil {
		return nil, fmt.Errorf("parse subject list markup: %w", err)
	}
	selector := fragment.Find("select").First()
	if selector.Length() == 0 {
		return nil, errors.New("no select in subject list markup")
	}

	subjects := SubjectTable{}
	for _, option := range htmlutil.GetOptions(selector.Children()) {
		if option.Value == "" {
			continue
		}
		subjects[option.Value] = option.Text
	}
	return subjects, nil
}

// minTermSimilarity is the lowest Jaro-Winkler similarity MatchTerm accepts
// for a fuzzy label match.
const minTermSimilarity = 0.8

// MatchTerm resolves `query` to a term code, it accepts a code, a label, or
// something close enough to a label.
func MatchTerm(terms TermTable, query string) (string, bool) {
	query = htmlutil.NormalizeText(query)
	if query == "" {
		return "", false
	}
	if _, ok := terms[query]; ok {
		return query, true
	}

	codes := terms.Codes()
	for _, code := range codes {
		if strings.EqualFold(htmlutil.NormalizeText(terms[code]), query) {
			return code, true
		}
	}

	var bestCode string
	var bestSimilarity float64
	for _, code := range codes {
		similarity := matchr.JaroWinkler(terms[code], query, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestCode = code
		}
	}
	if bestSimilarity < minTermSimilarity {
		return "", false
	}
	return bestCode, true
}
