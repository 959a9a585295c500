package kingo

import (
	"kingo-scraper/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// listedElements are the elements a form submits, in document order.
const listedElements = "button, fieldset, input, keygen, object, output, select, textarea"

type loginValues struct {
	userAgent string
	username  string
	password  string
	role      string
}

// formFields returns the named elements of a form.
func formFields(form *goquery.Selection) *goquery.Selection {
	return form.Find(listedElements).FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, named := s.Attr("name")
		return named
	})
}

// resolveLoginFields fills in the login form. Fields the portal obfuscates
// get their values from the credentials, every other field is sent back with
// the value it was served with.
func resolveLoginFields(form *goquery.Selection, names LoginFields, values loginValues) []Field {
	var fields []Field
	formFields(form).Each(func(_ int, element *goquery.Selection) {
		name := element.AttrOr("name", "")

		switch name {
		case names.ClientInfo:
			fields = append(fields, Field{Name: name, Value: values.userAgent})
		case names.EncryptedSecret:
			fields = append(fields, Field{
				Name:  name,
				Value: EncryptedPassword(values.username, values.password),
			})
		case names.Role:
			fields = append(fields, Field{Name: name, Value: values.role})
		case names.DisplayIdentity:
			fields = append(fields, Field{Name: name, Value: values.username})
		case names.RoleLabel:
			for _, option := range htmlutil.GetOptions(form.Find("select option")) {
				if option.Value == values.role {
					fields = append(fields, Field{Name: name, Value: option.Text})
					break
				}
			}
		default:
			fields = append(fields, Field{Name: name, Value: servedValue(element)})
		}
	})
	return fields
}

// servedValue is the value an element was served with, a textarea keeps it
// in its content.
func servedValue(element *goquery.Selection) string {
	if goquery.NodeName(element) == "textarea" {
		return element.Text()
	}
	return element.AttrOr("value", "")
}

// queryFields builds the subject query form of one (term, subject) pair.
func queryFields(names QueryFields, tableFormat, termCode, subjectCode string) []Field {
	return []Field{
		{Name: names.Format, Value: tableFormat},
		{Name: names.Captcha, Value: ""},
		{Name: names.Term, Value: termCode},
		{Name: names.Subject, Value: subjectCode},
	}
}
