package commands

import (
	"context"
	"database/sql"
	"fmt"
	"kingo-scraper/internal/components/chrono"
	"kingo-scraper/internal/components/db"
	"kingo-scraper/internal/components/telemetry"
	"kingo-scraper/internal/scrapers/kingo"
	"kingo-scraper/pkg/configutil"
	"kingo-scraper/pkg/serviceutil"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`

	UserAgent            string  `json:"user_agent"`
	Charset              string  `json:"charset"`
	DelayMs              *int    `json:"delay_ms"`
	TableFormat          string  `json:"table_format"`
	MaxRequestsPerSecond float64 `json:"max_requests_per_second"`
	TimeoutSeconds       int     `json:"timeout_seconds"`
	CloudflareBypass     bool    `json:"cloudflare_bypass"`

	// Site overrides the embedded portal layout, site.base_url is required.
	Site kingo.Site `json:"site"`
}

const defaultDelay = 3 * time.Second

// CaptureDelay is delay_ms, or the default when it is left out. An explicit 0
// disables pacing.
func (c Config) CaptureDelay() time.Duration {
	if c.DelayMs == nil {
		return defaultDelay
	}
	return time.Duration(*c.DelayMs) * time.Millisecond
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("failed to read config %s", configPath), err)
	}
	if cfg.Username == "" {
		serviceutil.Fatal("config is missing a username", nil)
	}
	if cfg.DelayMs != nil && *cfg.DelayMs < 0 {
		serviceutil.Fatal("delay_ms cannot be negative", nil)
	}
	return cfg
}

type env struct {
	cfg      Config
	client   *kingo.Client
	database *sql.DB
	manifest db.Manifest
}

func (e env) Close() {
	if e.database != nil {
		e.database.Close()
	}
}

// openClient builds a portal client from the config, when `withManifest` is
// set capture runs are also recorded to the database.
func openClient(ctx context.Context, withManifest bool) env {
	cfg := readConfig()

	site, err := kingo.OverrideSite(cfg.Site)
	if err != nil {
		serviceutil.Fatal("invalid site config", err)
	}

	tel := telemetry.SlogAPI{}

	var dump telemetry.InstrumentOutput
	if dumpHttp != "" {
		output, err := telemetry.NewFilesystemOutput(dumpHttp)
		if err != nil {
			serviceutil.Fatal("failed to create http dump directory", err)
		}
		dump = output
	}

	session, err := kingo.NewSession(kingo.SessionOptions{
		BaseUrl:              site.BaseUrl,
		UserAgent:            cfg.UserAgent,
		Charset:              cfg.Charset,
		Timeout:              time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRequestsPerSecond: cfg.MaxRequestsPerSecond,
		CloudflareBypass:     cfg.CloudflareBypass,
		HttpDump:             dump,
	}, tel)
	if err != nil {
		serviceutil.Fatal("failed to create session", err)
	}

	out := env{cfg: cfg}
	opts := kingo.ClientOptions{
		Credentials: kingo.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
			Role:     cfg.Role,
		},
		Delay:       cfg.CaptureDelay(),
		TableFormat: cfg.TableFormat,
	}

	clock := chrono.NewStandardImpl()
	if withManifest {
		database, err := db.Open(ctx, dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		out.database = database
		out.manifest = db.NewManifest(database, clock)
		opts.Manifest = out.manifest
	}

	client, err := kingo.NewClient(site, session, opts, clock, tel)
	if err != nil {
		serviceutil.Fatal("failed to create client", err)
	}
	out.client = client
	return out
}

// ensureSession logs in if needed and exits when the portal refuses.
func ensureSession(ctx context.Context, client *kingo.Client) {
	ok, err := client.EnsureSession(ctx)
	if err != nil {
		serviceutil.Fatal("failed to reach the portal", err)
	}
	if !ok {
		serviceutil.Fatal("failed to login, check the credentials in the config", nil)
	}
}

// resolveTerm accepts a term code or (something close to) a term label.
func resolveTerm(ctx context.Context, client *kingo.Client, query string) string {
	terms, err := client.DumpTermList(ctx)
	if err != nil {
		serviceutil.Fatal("failed to list terms", err)
	}
	if len(terms) == 0 {
		// the portal did not list terms, trust the caller
		return query
	}
	code, ok := kingo.MatchTerm(terms, query)
	if !ok {
		serviceutil.Fatal(fmt.Sprintf("no term matches %q, see the terms command", query), nil)
	}
	return code
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
