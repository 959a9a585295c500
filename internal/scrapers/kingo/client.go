// Package kingo drives a Kingo JW course portal: it logs in through the
// portal's html form, lists terms and subjects, and captures the per-subject
// result pages to files.
package kingo

import (
	"fmt"
	"kingo-scraper/internal/components/assert"
	"kingo-scraper/internal/components/chrono"
	"kingo-scraper/internal/components/telemetry"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("kingo-scraper/internal/scrapers/kingo")

const (
	report_client_login            = "client.login"
	report_client_is_login_expired = "client.is-login-expired"
	report_client_dump_term_list   = "client.dump-term-list"
	report_client_dump_course_list = "client.dump-course-list"
	report_client_capture_term     = "client.capture-term"
	report_client_manifest         = "client.manifest"
)

type Credentials struct {
	Username string
	Password string
	// Role is the value of the portal's role selector (ex. student or teacher).
	Role string
}

type ClientOptions struct {
	Credentials Credentials
	// Delay is the pause between two subject captures.
	Delay time.Duration
	// TableFormat is the output format code sent with every subject query.
	TableFormat string
	// Progress is called after each captured subject, defaults to LogProgress.
	Progress ProgressFunc
	// Manifest records capture runs when set.
	Manifest Manifest
}

// Client is a logged in (or about to be logged in) portal session.
//
// A Client is not safe for concurrent use, the portal is only ever accessed
// one request at a time.
type Client struct {
	site        Site
	credentials Credentials
	session     Session
	successTip  *regexp.Regexp

	delay       time.Duration
	tableFormat string
	progress    ProgressFunc
	manifest    Manifest

	tel  telemetry.API
	time chrono.API
}

func NewClient(
	site Site,
	session Session,
	opts ClientOptions,
	time chrono.API,
	tel telemetry.API,
) (*Client, error) {
	assert.NotNil(session)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Credentials.Username)

	err := site.Validate()
	if err != nil {
		return nil, err
	}
	// the tip has to match the whole login note
	successTip, err := regexp.Compile(fmt.Sprintf("^(?:%s)$", site.LoginSuccessTip))
	if err != nil {
		return nil, fmt.Errorf("compile login success tip: %w", err)
	}

	progress := opts.Progress
	if progress == nil {
		progress = LogProgress
	}

	return &Client{
		site:        site,
		credentials: opts.Credentials,
		session:     session,
		successTip:  successTip,
		delay:       opts.Delay,
		tableFormat: opts.TableFormat,
		progress:    progress,
		manifest:    opts.Manifest,
		tel:         telemetry.NewScopedAPI("kingo", tel),
		time:        time,
	}, nil
}

func (c *Client) UserAgent() string {
	return c.session.UserAgent()
}

func (c *Client) SetUserAgent(userAgent string) {
	c.session.SetUserAgent(userAgent)
}

func (c *Client) Charset() string {
	return c.session.Charset()
}

func (c *Client) SetCharset(label string) error {
	return c.session.SetCharset(label)
}

func (c *Client) Delay() time.Duration {
	return c.delay
}

func (c *Client) SetDelay(delay time.Duration) {
	assert.NotNegative(int(delay))
	c.delay = delay
}

func (c *Client) TableFormat() string {
	return c.tableFormat
}

func (c *Client) SetTableFormat(format string) {
	c.tableFormat = format
}

func (c *Client) SetProgress(progress ProgressFunc) {
	if progress == nil {
		progress = LogProgress
	}
	c.progress = progress
}

func (c *Client) SetManifest(manifest Manifest) {
	c.manifest = manifest
}
