package kingo

import (
	_ "embed"
	"errors"
	"fmt"
	"kingo-scraper/pkg/configutil"
	"net/url"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

//go:embed site.json5
var defaultSite []byte

var ErrSiteIncomplete = errors.New("kingo: site definition is incomplete")

type Pages struct {
	Login            string `json:"login"`
	ClassInfoQuery   string `json:"class_info_query"`
	SubjectListQuery string `json:"subject_list_query"`
	SubjectQuery     string `json:"subject_query"`
}

type Elements struct {
	LoginNote string `json:"login_note"`
	Captcha   string `json:"captcha"`
	TermForm  string `json:"term_form"`
}

// LoginFields are the names of the login form inputs that need values other
// than the ones the form was served with.
type LoginFields struct {
	ClientInfo      string `json:"client_info"`
	EncryptedSecret string `json:"encrypted_secret"`
	Role            string `json:"role"`
	DisplayIdentity string `json:"display_identity"`
	RoleLabel       string `json:"role_label"`
}

type QueryFields struct {
	Term    string `json:"term"`
	Subject string `json:"subject"`
	Captcha string `json:"captcha"`
	Format  string `json:"format"`
}

// Site describes the endpoints and element ids of a portal.
type Site struct {
	BaseUrl         string      `json:"base_url"`
	Pages           Pages       `json:"pages"`
	LoginSuccessTip string      `json:"login_success_tip"`
	Elements        Elements    `json:"elements"`
	LoginFields     LoginFields `json:"login_fields"`
	QueryFields     QueryFields `json:"query_fields"`
}

// DefaultSite returns the embedded portal layout.
func DefaultSite() (Site, error) {
	var site Site
	err := json5.Unmarshal(defaultSite, &site)
	if err != nil {
		return Site{}, fmt.Errorf("parse embedded site: %w", err)
	}
	return site, nil
}

// LoadSite merges json5 `overrides` on top of the embedded layout.
func LoadSite(overrides []byte) (Site, error) {
	site, err := DefaultSite()
	if err != nil {
		return Site{}, err
	}
	site, err = configutil.Merge(site, overrides)
	if err != nil {
		return Site{}, fmt.Errorf("merge site overrides: %w", err)
	}
	return site, site.Validate()
}

// OverrideSite merges the non-empty values of `overrides` on top of the
// embedded layout.
func OverrideSite(overrides Site) (Site, error) {
	site, err := DefaultSite()
	if err != nil {
		return Site{}, err
	}
	err = mergo.Merge(&site, overrides, mergo.WithOverride)
	if err != nil {
		return Site{}, fmt.Errorf("merge site overrides: %w", err)
	}
	return site, site.Validate()
}

func (s Site) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"base_url", s.BaseUrl},
		{"pages.login", s.Pages.Login},
		{"pages.class_info_query", s.Pages.ClassInfoQuery},
		{"pages.subject_list_query", s.Pages.SubjectListQuery},
		{"pages.subject_query", s.Pages.SubjectQuery},
		{"login_success_tip", s.LoginSuccessTip},
		{"elements.login_note", s.Elements.LoginNote},
		{"elements.captcha", s.Elements.Captcha},
		{"elements.term_form", s.Elements.TermForm},
		{"login_fields.client_info", s.LoginFields.ClientInfo},
		{"login_fields.encrypted_secret", s.LoginFields.EncryptedSecret},
		{"login_fields.role", s.LoginFields.Role},
		{"login_fields.display_identity", s.LoginFields.DisplayIdentity},
		{"login_fields.role_label", s.LoginFields.RoleLabel},
		{"query_fields.term", s.QueryFields.Term},
		{"query_fields.subject", s.QueryFields.Subject},
		{"query_fields.captcha", s.QueryFields.Captcha},
		{"query_fields.format", s.QueryFields.Format},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is empty", ErrSiteIncomplete, r.name)
		}
	}
	_, err := url.Parse(s.BaseUrl)
	if err != nil {
		return fmt.Errorf("%w: base_url: %s", ErrSiteIncomplete, err.Error())
	}
	return nil
}

// SubjectListUrl returns the subject list endpoint of the given term.
func (s Site) SubjectListUrl(termCode string) string {
	escaped := url.QueryEscape(termCode)
	if strings.Contains(s.Pages.SubjectListQuery, "{term}") {
		return strings.ReplaceAll(s.Pages.SubjectListQuery, "{term}", escaped)
	}
	return s.Pages.SubjectListQuery + escaped
}
