package kingo

import (
	"context"
	"fmt"
	"kingo-scraper/internal/components/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	method  string
	target  string
	referer string
	form    []Field
}

// fakeSession serves canned pages keyed by request target.
type fakeSession struct {
	gets     map[string]string
	posts    map[string]func(form []Field) (string, error)
	requests []fakeRequest

	userAgent string
	charset   string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		gets:      map[string]string{},
		posts:     map[string]func(form []Field) (string, error){},
		userAgent: "test-agent",
		charset:   DefaultCharset,
	}
}

func (s *fakeSession) Get(ctx context.Context, target, referer string) (Page, error) {
	s.requests = append(s.requests, fakeRequest{method: "GET", target: target, referer: referer})
	body, ok := s.gets[target]
	if !ok {
		return Page{}, fmt.Errorf("get %s: no such page", target)
	}
	return parsePage(target, body)
}

func (s *fakeSession) Post(ctx context.Context, target, referer string, form []Field) (Page, error) {
	s.requests = append(s.requests, fakeRequest{method: "POST", target: target, referer: referer, form: form})
	handler, ok := s.posts[target]
	if !ok {
		return Page{}, fmt.Errorf("post %s: no such page", target)
	}
	body, err := handler(form)
	if err != nil {
		return Page{}, err
	}
	return parsePage(target, body)
}

func (s *fakeSession) countRequests(method, target string) int {
	count := 0
	for _, r := range s.requests {
		if r.method == method && r.target == target {
			count++
		}
	}
	return count
}

func (s *fakeSession) UserAgent() string {
	return s.userAgent
}

func (s *fakeSession) SetUserAgent(userAgent string) {
	s.userAgent = userAgent
}

func (s *fakeSession) Charset() string {
	return s.charset
}

func (s *fakeSession) SetCharset(label string) error {
	s.charset = label
	return nil
}

// fakeClock never actually sleeps.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return ctx.Err()
}

type memorySink struct {
	files map[string]string
}

func newMemorySink() *memorySink {
	return &memorySink{files: map[string]string{}}
}

func (s *memorySink) Write(name string, contents string) error {
	s.files[name] = contents
	return nil
}

type fakeManifest struct {
	begun         []string
	subjects      []string
	finished      []int
	succeeded     []bool
	loginFailures []string
}

func (m *fakeManifest) BeginRun(ctx context.Context, termCode string, total int) (int64, error) {
	m.begun = append(m.begun, termCode)
	return int64(len(m.begun)), nil
}

func (m *fakeManifest) RecordSubject(ctx context.Context, runID int64, code, name, fileName string, size int) error {
	m.subjects = append(m.subjects, code)
	return nil
}

func (m *fakeManifest) FinishRun(ctx context.Context, runID int64, captured int, succeeded bool) error {
	m.finished = append(m.finished, captured)
	m.succeeded = append(m.succeeded, succeeded)
	return nil
}

func (m *fakeManifest) RecordLoginFailure(ctx context.Context, termCode string) error {
	m.loginFailures = append(m.loginFailures, termCode)
	return nil
}

func testSite(t testing.TB) Site {
	site, err := LoadSite([]byte(`{base_url: "http://portal.test"}`))
	require.NoError(t, err)
	return site
}

type testEnv struct {
	site    Site
	session *fakeSession
	clock   *fakeClock
	tel     *telemetry.RecordingAPI
	client  *Client
}

func newTestEnv(t testing.TB, opts ClientOptions) testEnv {
	site := testSite(t)
	session := newFakeSession()
	clock := &fakeClock{}
	tel := telemetry.NewRecordingAPI()

	if opts.Credentials.Username == "" {
		opts.Credentials = Credentials{
			Username: "20230001",
			Password: "secret",
			Role:     "STU",
		}
	}

	client, err := NewClient(site, session, opts, clock, tel)
	require.NoError(t, err)

	return testEnv{
		site:    site,
		session: session,
		clock:   clock,
		tel:     tel,
		client:  client,
	}
}

const loginPageHtml = `<html><body>
<form name="form1" method="post" action="index_LOGIN.aspx">
	<input type="hidden" name="__VIEWSTATE" value="dDwtMTIzNDs7Pg==">
	<input type="hidden" name="pcInfo" value="">
	<input type="text" name="txt_asmcdefsddsd" value="">
	<input type="password" name="dsdsdsdsdxcxdfgfg" value="">
	<select name="Sel_Type">
		<option value="STU">学生</option>
		<option value="TEA">教师</option>
	</select>
	<input type="hidden" name="typeName" value="">
	<input type="button" value="登录">
</form>
</body></html>`

func loginNoteHtml(message string) string {
	return fmt.Sprintf(`<html><body><div id="divLogNote"><span>%s</span></div></body></html>`, message)
}

func classInfoHtml(captchaStyle string) string {
	return fmt.Sprintf(`<html><body>
<form id="form1" method="post">
	<select name="Sel_XNXQ">
		<option value="20240">2024-2025学年第一学期</option>
		<option value="20241">2024-2025学年第二学期</option>
	</select>
	<div style="%s"><input id="txt_yzm" name="txt_yzm" type="text"></div>
</form>
</body></html>`, captchaStyle)
}

const subjectListHtml = `<html><head>
<script type="text/javascript">
	document.write("<select name='Sel_KC'><option value=''></option><option value='CS101'>[CS101]程序设计</option><option value='MA/201'>[MA/201]高等数学</option><option value='PE001'>[PE001]体育</option></select>");
</script>
</head><body></body></html>`
