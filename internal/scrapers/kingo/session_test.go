package kingo

import (
	"context"
	"fmt"
	"kingo-scraper/internal/components/chrono"
	"kingo-scraper/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func gbk(t testing.TB, s string) string {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return encoded
}

func TestEncodeForm(t *testing.T) {
	form := []Field{
		{Name: "typeName", Value: "教师"},
		{Name: "q", Value: "a b&c"},
		{Name: "empty", Value: ""},
	}

	encoded, err := encodeForm(form, "gbk")
	require.NoError(t, err)
	require.Equal(t, "typeName=%BD%CC%CA%A6&q=a+b%26c&empty=", encoded)

	encoded, err = encodeForm(form, "utf-8")
	require.NoError(t, err)
	require.Equal(t, "typeName=%E6%95%99%E5%B8%88&q=a+b%26c&empty=", encoded)

	_, err = encodeForm(form, "not-a-charset")
	require.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	decoded, err := decodeBody([]byte(gbk(t, "<p>正在加载权限数据</p>")), "gb2312")
	require.NoError(t, err)
	require.Equal(t, "<p>正在加载权限数据</p>", decoded)

	decoded, err = decodeBody([]byte("<p>plain</p>"), "utf-8")
	require.NoError(t, err)
	require.Equal(t, "<p>plain</p>", decoded)
}

func TestSessionCharset(t *testing.T) {
	session, err := NewSession(SessionOptions{BaseUrl: "http://portal.test"}, telemetry.NewRecordingAPI())
	require.NoError(t, err)
	require.Equal(t, DefaultCharset, session.Charset())
	require.Equal(t, DefaultUserAgent, session.UserAgent())

	require.NoError(t, session.SetCharset("GBK"))
	require.Equal(t, "GBK", session.Charset())
	require.Error(t, session.SetCharset("klingon"))
	require.Equal(t, "GBK", session.Charset())

	_, err = NewSession(SessionOptions{BaseUrl: "http://portal.test", Charset: "klingon"}, telemetry.NewRecordingAPI())
	require.Error(t, err)
}

// fakePortal is a GBK encoded portal that only answers subject queries for
// a logged in session.
type fakePortal struct {
	site     Site
	logins   atomic.Int32
	queries  atomic.Int32
	subjects map[string]string
}

const sessionCookie = "ASP.NET_SessionId"

func (p *fakePortal) write(w http.ResponseWriter, body string) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=gb2312")
	_, _ = w.Write([]byte(encoded))
}

func (p *fakePortal) loggedIn(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	return err == nil && cookie.Value == "s3ss10n"
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	referer := r.Header.Get("Referer")
	if !strings.HasPrefix(referer, "http://") {
		http.Error(w, "relative referer", http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == p.site.Pages.Login:
		p.write(w, loginPageHtml)

	case r.Method == http.MethodPost && r.URL.Path == p.site.Pages.Login:
		p.logins.Add(1)
		if r.ParseForm() != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("dsdsdsdsdxcxdfgfg") != "1EDE3143D795BE6A5894182F2A6548" ||
			r.PostForm.Get("typeName") != "\xd1\xa7\xc9\xfa" {
			p.write(w, loginNoteHtml("用户名或密码错误!"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s3ss10n", Path: "/"})
		p.write(w, loginNoteHtml("正在加载权限数据..."))

	case r.Method == http.MethodGet && r.URL.Path == p.site.Pages.ClassInfoQuery:
		if p.loggedIn(r) {
			p.write(w, classInfoHtml("display:none"))
			return
		}
		p.write(w, classInfoHtml(""))

	case r.Method == http.MethodGet && r.URL.Path == strings.SplitN(p.site.Pages.SubjectListQuery, "?", 2)[0]:
		if !p.loggedIn(r) {
			http.Error(w, "login first", http.StatusForbidden)
			return
		}
		p.write(w, `<html><head><script>document.write("<select name='Sel_KC'><option value=''></option><option value='CS101'>[CS101]程序设计</option><option value='MA201'>[MA201]高等数学</option></select>");</script></head></html>`)

	case r.Method == http.MethodPost && r.URL.Path == p.site.Pages.SubjectQuery:
		p.queries.Add(1)
		if !p.loggedIn(r) {
			http.Error(w, "login first", http.StatusForbidden)
			return
		}
		if r.ParseForm() != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		body, ok := p.subjects[r.PostForm.Get("Sel_KC")]
		if !ok || r.PostForm.Get("Sel_XNXQ") != "2024-1" {
			http.NotFound(w, r)
			return
		}
		p.write(w, body)

	default:
		http.NotFound(w, r)
	}
}

func newPortalClient(t *testing.T, portal *fakePortal, url string, dump telemetry.InstrumentOutput) *Client {
	site := portal.site
	site.BaseUrl = url

	tel := telemetry.NewRecordingAPI()
	session, err := NewSession(SessionOptions{
		BaseUrl:  url,
		Charset:  "gb2312",
		HttpDump: dump,
	}, tel)
	require.NoError(t, err)

	client, err := NewClient(site, session, ClientOptions{
		Credentials: Credentials{Username: "20230001", Password: "secret", Role: "STU"},
		TableFormat: "1",
	}, chrono.NewStandardImpl(), tel)
	require.NoError(t, err)
	return client
}

func TestPortalCapture(t *testing.T) {
	portal := &fakePortal{
		site: testSite(t),
		subjects: map[string]string{
			"CS101": "<html><body><td>程序设计 周一 1-2节</td></body></html>",
			"MA201": "<html><body><td>高等数学 周三 3-4节</td></body></html>",
		},
	}
	server := httptest.NewServer(portal)
	defer server.Close()

	dumps := t.TempDir()
	dump, err := telemetry.NewFilesystemOutput(dumps)
	require.NoError(t, err)
	client := newPortalClient(t, portal, server.URL, dump)

	expired, err := client.IsLoginExpired(context.Background())
	require.NoError(t, err)
	require.True(t, expired)

	out := t.TempDir()
	count, err := client.GetTermSubjectToFiles(context.Background(), "2024-1", out)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, int32(1), portal.logins.Load())
	require.Equal(t, int32(2), portal.queries.Load())

	for code, expected := range portal.subjects {
		contents, err := os.ReadFile(filepath.Join(out, fmt.Sprintf("%s.html", code)))
		require.NoError(t, err)
		require.Equal(t, expected, string(contents))
	}

	expired, err = client.IsLoginExpired(context.Background())
	require.NoError(t, err)
	require.False(t, expired)

	entries, err := os.ReadDir(dumps)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestPortalRejectedLogin(t *testing.T) {
	portal := &fakePortal{site: testSite(t)}
	server := httptest.NewServer(portal)
	defer server.Close()

	site := portal.site
	site.BaseUrl = server.URL
	session, err := NewSession(SessionOptions{BaseUrl: server.URL, Charset: "gb2312"}, telemetry.NewRecordingAPI())
	require.NoError(t, err)
	client, err := NewClient(site, session, ClientOptions{
		Credentials: Credentials{Username: "20230001", Password: "wrong", Role: "STU"},
	}, chrono.NewStandardImpl(), telemetry.NewRecordingAPI())
	require.NoError(t, err)

	count, err := client.GetTermSubjectToFiles(context.Background(), "2024-1", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, -1, count)
	require.Equal(t, int32(0), portal.queries.Load())
}

func TestPortalWithoutLoginForm(t *testing.T) {
	var posts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer server.Close()

	site := testSite(t)
	site.BaseUrl = server.URL
	session, err := NewSession(SessionOptions{BaseUrl: server.URL}, telemetry.NewRecordingAPI())
	require.NoError(t, err)
	client, err := NewClient(site, session, ClientOptions{
		Credentials: Credentials{Username: "20230001", Password: "secret"},
	}, chrono.NewStandardImpl(), telemetry.NewRecordingAPI())
	require.NoError(t, err)

	ok, err := client.InitializeSession(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int32(0), posts.Load())
}

func TestPortalErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	session, err := NewSession(SessionOptions{BaseUrl: server.URL}, telemetry.NewRecordingAPI())
	require.NoError(t, err)

	_, err = session.Get(context.Background(), "/anything", "/")
	require.ErrorContains(t, err, "500")
}
