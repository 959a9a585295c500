package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// InstrumentOutput receives full request/response dumps keyed by message id.
type InstrumentOutput interface {
	Write(id string, contents string) error
}

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	output    InstrumentOutput
	idcounter *uint64
}

// InstrumentResty attaches tracing spans and debug reports to every request
// made by `client`. `output` can be nil, in which case no message dumps are written.
func InstrumentResty(client *resty.Client, tel API, output InstrumentOutput) {
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    otel.Tracer("kingo-scraper/resty"),
		output:    output,
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}

	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return nil
	}

	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		time.Since(reqCtx.startTime).String(),
		res.Status(),
	)

	if i.output != nil {
		err := i.output.Write(
			fmt.Sprintf("%04d.txt", reqCtx.id),
			formatHttpMessage(res),
		)
		if err != nil {
			i.tel.ReportWarning(report_resty_response, fmt.Errorf("write message dump: %w", err))
		}
	}

	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	var duration time.Duration
	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if ok {
		duration = time.Since(reqCtx.startTime)
	}

	i.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		req.URL,
		duration,
	)
}

// formatHeaders writes one "Key: Value" line per header value, sorted by key.
func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		for _, v := range headers[k] {
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(lines, "\n")
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil || req.Body == nil || req.Body == http.NoBody {
		return "<no body>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err.Error())
	}
	if body == nil {
		return "<no body>"
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err.Error())
	}
	return string(contents)
}

// formatHttpMessage renders a request/response pair the way it went over the
// wire, the response body is left in the portal's charset.
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder
	section := func(title string, parts ...string) {
		fmt.Fprintf(&out, "---- %s ----\n\n", title)
		for _, p := range parts {
			out.WriteString(p)
			out.WriteString("\n\n")
		}
	}

	request := []string{fmt.Sprintf("%s %s", res.Request.Method, res.Request.URL)}
	if res.Request.RawRequest != nil {
		request = append(
			request,
			formatHeaders(res.Request.RawRequest.Header),
			formatRequestBody(res.Request.RawRequest),
		)
	}
	section("REQUEST", request...)

	location := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			location = redirected.String()
		}
	}
	section(
		"RESPONSE",
		fmt.Sprintf("%s %s", strconv.Itoa(res.StatusCode()), location),
		formatHeaders(res.Header()),
		res.String(),
	)
	return strings.TrimSuffix(out.String(), "\n\n")
}
