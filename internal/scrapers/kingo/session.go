package kingo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"kingo-scraper/internal/components/assert"
	"kingo-scraper/internal/components/telemetry"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	DefaultCharset   = "UTF-8"
)

// Field is a single name/value pair of a submitted form, order matters.
type Field struct {
	Name  string
	Value string
}

// Page is a fetched and decoded response.
type Page struct {
	Url  string
	Body string
	Doc  *goquery.Document
}

// Session keeps cookies across requests made to the portal.
//
// note: fault injection point
type Session interface {
	Get(ctx context.Context, target, referer string) (Page, error)
	Post(ctx context.Context, target, referer string, form []Field) (Page, error)

	UserAgent() string
	SetUserAgent(userAgent string)
	Charset() string
	SetCharset(label string) error
}

type SessionOptions struct {
	BaseUrl   string
	UserAgent string
	// Charset is an html encoding label, used to decode responses and encode
	// submitted forms.
	Charset string
	Timeout time.Duration
	// MaxRequestsPerSecond caps the request rate of the session, 0 means unlimited.
	MaxRequestsPerSecond float64
	CloudflareBypass     bool
	// HttpDump receives every request/response pair when set.
	HttpDump telemetry.InstrumentOutput
}

// RestySession is the Session used against a real portal.
type RestySession struct {
	baseUrl   *url.URL
	http      *resty.Client
	userAgent string
	charset   string
	tel       telemetry.API
}

func NewSession(opts SessionOptions, tel telemetry.API) (*RestySession, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	charsetLabel := opts.Charset
	if charsetLabel == "" {
		charsetLabel = DefaultCharset
	}
	_, err = htmlindex.Get(charsetLabel)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charsetLabel, err)
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	if opts.MaxRequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.MaxRequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel, opts.HttpDump)

	return &RestySession{
		baseUrl:   baseUrl,
		http:      client,
		userAgent: userAgent,
		charset:   charsetLabel,
		tel:       tel,
	}, nil
}

func (s *RestySession) UserAgent() string {
	return s.userAgent
}

func (s *RestySession) SetUserAgent(userAgent string) {
	s.userAgent = userAgent
}

func (s *RestySession) Charset() string {
	return s.charset
}

func (s *RestySession) SetCharset(label string) error {
	_, err := htmlindex.Get(label)
	if err != nil {
		return fmt.Errorf("unknown charset %q: %w", label, err)
	}
	s.charset = label
	return nil
}

// referer resolves `referer` against the base url, the portal expects an
// absolute referer.
func (s *RestySession) referer(referer string) string {
	ref, err := url.Parse(referer)
	if err != nil {
		return referer
	}
	return s.baseUrl.ResolveReference(ref).String()
}

func (s *RestySession) request(ctx context.Context, referer string) *resty.Request {
	return s.http.R().
		SetContext(ctx).
		SetHeader("Referer", s.referer(referer)).
		SetHeader("User-Agent", s.userAgent)
}

func (s *RestySession) Get(ctx context.Context, target, referer string) (Page, error) {
	res, err := s.request(ctx, referer).Get(target)
	if err != nil {
		return Page{}, fmt.Errorf("get %s: %w", target, err)
	}
	return s.page(res)
}

func (s *RestySession) Post(ctx context.Context, target, referer string, form []Field) (Page, error) {
	body, err := encodeForm(form, s.charset)
	if err != nil {
		return Page{}, fmt.Errorf("encode form for %s: %w", target, err)
	}
	res, err := s.request(ctx, referer).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(body).
		Post(target)
	if err != nil {
		return Page{}, fmt.Errorf("post %s: %w", target, err)
	}
	return s.page(res)
}

func (s *RestySession) page(res *resty.Response) (Page, error) {
	if res.IsError() {
		return Page{}, fmt.Errorf("%s %s: unexpected status %s", res.Request.Method, res.Request.URL, res.Status())
	}
	body, err := decodeBody(res.Body(), s.charset)
	if err != nil {
		return Page{}, fmt.Errorf("decode %s: %w", res.Request.URL, err)
	}
	return parsePage(res.Request.URL, body)
}

func parsePage(pageUrl, body string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", pageUrl, err)
	}
	return Page{Url: pageUrl, Body: body, Doc: doc}, nil
}

func decodeBody(body []byte, label string) (string, error) {
	reader, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// encodeForm urlencodes `form` in order, names and values are first encoded
// into the given charset.
func encodeForm(form []Field, label string) (string, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", err
	}
	encoder := encoding.ReplaceUnsupported(enc.NewEncoder())

	var out strings.Builder
	for i, field := range form {
		name, err := encoder.String(field.Name)
		if err != nil {
			return "", err
		}
		value, err := encoder.String(field.Value)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(name))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(value))
	}
	return out.String(), nil
}
