package kingo

import (
	"context"
	"errors"
	"fmt"
	"kingo-scraper/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type LoginState int

const (
	LOGIN_UNAUTHENTICATED LoginState = iota
	LOGIN_FORM_FETCHED
	LOGIN_SUBMITTED
	LOGIN_AUTHENTICATED
	LOGIN_REJECTED
)

func (s LoginState) String() string {
	switch s {
	case LOGIN_UNAUTHENTICATED:
		return "unauthenticated"
	case LOGIN_FORM_FETCHED:
		return "form-fetched"
	case LOGIN_SUBMITTED:
		return "submitted"
	case LOGIN_AUTHENTICATED:
		return "authenticated"
	case LOGIN_REJECTED:
		return "rejected"
	}
	return fmt.Sprintf("LoginState(%d)", int(s))
}

// LoginResult is the final state of a login attempt, Reason explains why it
// did not authenticate.
type LoginResult struct {
	State  LoginState
	Reason string
}

func (r LoginResult) Authenticated() bool {
	return r.State == LOGIN_AUTHENTICATED
}

func byId(doc *goquery.Selection, id string) *goquery.Selection {
	return doc.Find(fmt.Sprintf(`[id="%s"]`, id)).First()
}

// Login submits the portal's login form once, it never retries.
func (c *Client) Login(ctx context.Context) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginPage := c.site.Pages.Login

	page, err := c.session.Get(ctx, loginPage, loginPage)
	if err != nil {
		return LoginResult{State: LOGIN_UNAUTHENTICATED}, err
	}

	form := page.Doc.Find("form").First()
	if form.Length() == 0 || formFields(form).Length() == 0 {
		reason := "login form not found, the portal may be down or its layout changed"
		c.tel.ReportBroken(report_client_login, errors.New(reason), page.Url)
		return LoginResult{State: LOGIN_REJECTED, Reason: reason}, nil
	}
	c.tel.ReportDebug("login form fetched", formFields(form).Length())

	fields := resolveLoginFields(form, c.site.LoginFields, loginValues{
		userAgent: c.session.UserAgent(),
		username:  c.credentials.Username,
		password:  c.credentials.Password,
		role:      c.credentials.Role,
	})

	page, err = c.session.Post(ctx, loginPage, loginPage, fields)
	if err != nil {
		return LoginResult{State: LOGIN_FORM_FETCHED}, err
	}

	note := byId(page.Doc.Selection, c.site.Elements.LoginNote).Children().First()
	if note.Length() == 0 {
		reason := fmt.Sprintf("login result element #%s not found", c.site.Elements.LoginNote)
		c.tel.ReportBroken(report_client_login, errors.New(reason), page.Url)
		return LoginResult{State: LOGIN_SUBMITTED, Reason: reason}, nil
	}

	message := htmlutil.Text(note)
	if !c.successTip.MatchString(message) {
		c.tel.ReportWarning(report_client_login, "login rejected", message)
		return LoginResult{State: LOGIN_REJECTED, Reason: message}, nil
	}

	c.tel.ReportDebug("logged in", c.credentials.Username)
	return LoginResult{State: LOGIN_AUTHENTICATED}, nil
}

// InitializeSession logs in and reports whether the portal accepted the
// credentials.
func (c *Client) InitializeSession(ctx context.Context) (bool, error) {
	result, err := c.Login(ctx)
	if err != nil {
		return false, err
	}
	return result.Authenticated(), nil
}

// IsLoginExpired checks whether the class info page asks for a captcha, which
// it only does when the session is not logged in.
func (c *Client) IsLoginExpired(ctx context.Context) (bool, error) {
	queryPage := c.site.Pages.ClassInfoQuery

	page, err := c.session.Get(ctx, queryPage, queryPage)
	if err != nil {
		return false, err
	}

	captcha := byId(page.Doc.Selection, c.site.Elements.Captcha)
	if captcha.Length() == 0 {
		c.tel.ReportWarning(
			report_client_is_login_expired,
			fmt.Errorf("captcha input #%s not found, assuming expired", c.site.Elements.Captcha),
		)
		return true, nil
	}

	expired := captcha.Parent().AttrOr("style", "") != hiddenStyle
	c.tel.ReportDebug("login status", "expired", expired)
	return expired, nil
}

// hiddenStyle is the exact style the portal puts on the captcha row of a
// logged in session.
const hiddenStyle = "display:none"

// EnsureSession logs in when the current session has expired.
func (c *Client) EnsureSession(ctx context.Context) (bool, error) {
	expired, err := c.IsLoginExpired(ctx)
	if err != nil {
		return false, err
	}
	if !expired {
		return true, nil
	}
	return c.InitializeSession(ctx)
}
