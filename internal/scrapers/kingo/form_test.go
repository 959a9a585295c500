package kingo

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parseForm(t *testing.T, body string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc.Find("form").First()
}

func TestResolveLoginFields(t *testing.T) {
	site := testSite(t)
	form := parseForm(t, `<form>
		<input type="hidden" name="__EVENTVALIDATION" value="/wEW">
		<input name="txt_asmcdefsddsd" value="prefilled">
		<input name="dsdsdsdsdxcxdfgfg">
		<input name="pcInfo">
		<select name="Sel_Type">
			<option value="101">Teacher</option>
			<option value="102">Student</option>
		</select>
		<input name="typeName">
		<textarea name="notes">kept as served</textarea>
	</form>`)

	fields := resolveLoginFields(form, site.LoginFields, loginValues{
		userAgent: "agent/1.0",
		username:  "20230002",
		password:  "secret",
		role:      "102",
	})

	expected := []Field{
		{Name: "__EVENTVALIDATION", Value: "/wEW"},
		{Name: "txt_asmcdefsddsd", Value: "20230002"},
		{Name: "dsdsdsdsdxcxdfgfg", Value: "F8D1973317B5B8130B9079740A8BA8"},
		{Name: "pcInfo", Value: "agent/1.0"},
		{Name: "Sel_Type", Value: "102"},
		{Name: "typeName", Value: "Student"},
		{Name: "notes", Value: "kept as served"},
	}
	if diff := cmp.Diff(expected, fields); diff != "" {
		t.Fatal(diff)
	}
}

func TestResolveLoginFieldsUnknownRole(t *testing.T) {
	site := testSite(t)
	form := parseForm(t, `<form>
		<select name="Sel_Type"><option value="STU">学生</option></select>
		<input name="typeName">
	</form>`)

	fields := resolveLoginFields(form, site.LoginFields, loginValues{
		username: "x",
		role:     "ADM",
	})

	expected := []Field{
		{Name: "Sel_Type", Value: "ADM"},
	}
	if diff := cmp.Diff(expected, fields); diff != "" {
		t.Fatal(diff)
	}
}

func TestQueryFields(t *testing.T) {
	site := testSite(t)

	first := queryFields(site.QueryFields, "1", "20240", "CS101")
	second := queryFields(site.QueryFields, "1", "20240", "MA/201")

	expected := []Field{
		{Name: "gs", Value: "1"},
		{Name: "txt_yzm", Value: ""},
		{Name: "Sel_XNXQ", Value: "20240"},
		{Name: "Sel_KC", Value: "CS101"},
	}
	if diff := cmp.Diff(expected, first); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "MA/201", second[3].Value)
}
