package kingo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrLoginFailed is returned by CaptureTerm when the session had expired and
// logging in again was rejected.
var ErrLoginFailed = errors.New("kingo: login failed")

// ProgressFunc is called once per captured subject, `current` counts from 1.
type ProgressFunc func(total, current int, subjectCode string)

// LogProgress is the default ProgressFunc.
func LogProgress(total, current int, subjectCode string) {
	slog.Info("capture progress", "total", total, "current", current, "subject", subjectCode)
}

// OutputSink stores captured pages.
type OutputSink interface {
	Write(name string, contents string) error
}

// Manifest records capture runs.
type Manifest interface {
	BeginRun(ctx context.Context, termCode string, total int) (int64, error)
	RecordSubject(ctx context.Context, runID int64, code, name, fileName string, size int) error
	FinishRun(ctx context.Context, runID int64, captured int, succeeded bool) error
	RecordLoginFailure(ctx context.Context, termCode string) error
}

// FilesystemOutput writes captured pages into a directory as UTF-8 files.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(name string, contents string) error {
	return os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0644)
}

var fileNameReplacer = strings.NewReplacer("/", "_", `\`, "_")

// SubjectFileName is the name a subject's page is stored under.
func SubjectFileName(subjectCode string) string {
	return fileNameReplacer.Replace(subjectCode) + ".html"
}

// captureSubject queries a single subject and writes the raw response to
// `sink`, it returns the file name and the size of what was written.
func (c *Client) captureSubject(ctx context.Context, termCode, subjectCode string, sink OutputSink) (string, int, error) {
	form := queryFields(c.site.QueryFields, c.tableFormat, termCode, subjectCode)

	page, err := c.session.Post(ctx, c.site.Pages.SubjectQuery, c.site.Pages.ClassInfoQuery, form)
	if err != nil {
		return "", 0, fmt.Errorf("query subject %s: %w", subjectCode, err)
	}

	name := SubjectFileName(subjectCode)
	err = sink.Write(name, page.Body)
	if err != nil {
		return "", 0, fmt.Errorf("write subject %s: %w", subjectCode, err)
	}
	return name, len(page.Body), nil
}

// CaptureSingleSubject writes the page of one subject into `outputDir`.
func (c *Client) CaptureSingleSubject(ctx context.Context, termCode, subjectCode, outputDir string) error {
	sink, err := NewFilesystemOutput(outputDir)
	if err != nil {
		return err
	}
	_, _, err = c.captureSubject(ctx, termCode, subjectCode, sink)
	return err
}

// CaptureTerm writes the page of every subject of a term to `sink`, one
// request at a time with the configured delay in between. It logs in first
// if the session has expired and returns ErrLoginFailed if that is rejected.
//
// The first failing subject aborts the loop, the returned count is the number
// of subjects captured before it.
func (c *Client) CaptureTerm(ctx context.Context, termCode string, sink OutputSink, progress ProgressFunc) (int, error) {
	ctx, span := tracer.Start(ctx, "client:CaptureTerm")
	defer span.End()
	span.SetAttributes(attribute.String("term", termCode))

	if progress == nil {
		progress = c.progress
	}

	authenticated, err := c.EnsureSession(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check session")
		return 0, err
	}
	if !authenticated {
		c.tel.ReportBroken(
			report_client_capture_term,
			errors.New("login failed, check the credentials or whether the portal layout changed"),
		)
		if c.manifest != nil {
			err := c.manifest.RecordLoginFailure(ctx, termCode)
			if err != nil {
				c.tel.ReportWarning(report_client_manifest, err)
			}
		}
		span.SetStatus(codes.Error, "login failed")
		return 0, ErrLoginFailed
	}

	subjects, err := c.DumpCourseList(ctx, termCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list subjects")
		return 0, err
	}

	codeList := subjects.Codes()
	total := len(codeList)
	c.tel.ReportCount(report_client_capture_term, int64(total))

	runID := c.beginRun(ctx, termCode, total)

	captured := 0
	var loopErr error
	for i, code := range codeList {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		name, size, err := c.captureSubject(ctx, termCode, code, sink)
		if err != nil {
			loopErr = err
			break
		}
		captured++
		c.recordSubject(ctx, runID, code, subjects[code], name, size)
		progress(total, captured, code)

		if i < total-1 {
			err = c.time.Sleep(ctx, c.delay)
			if err != nil {
				loopErr = err
				break
			}
		}
	}

	c.finishRun(ctx, runID, captured, loopErr == nil)

	if loopErr != nil {
		span.RecordError(loopErr)
		span.SetStatus(codes.Error, "capture aborted")
		return captured, loopErr
	}
	c.tel.ReportDebug("capture finished", termCode, captured)
	return captured, nil
}

// GetTermSubjectToFiles captures every subject of a term into `outputDir`,
// it returns -1 when logging in failed.
func (c *Client) GetTermSubjectToFiles(ctx context.Context, termCode, outputDir string) (int, error) {
	sink, err := NewFilesystemOutput(outputDir)
	if err != nil {
		return 0, err
	}
	count, err := c.CaptureTerm(ctx, termCode, sink, nil)
	if errors.Is(err, ErrLoginFailed) {
		return -1, nil
	}
	return count, err
}

// manifest failures are reported but never abort a capture

func (c *Client) beginRun(ctx context.Context, termCode string, total int) int64 {
	if c.manifest == nil {
		return 0
	}
	runID, err := c.manifest.BeginRun(ctx, termCode, total)
	if err != nil {
		c.tel.ReportWarning(report_client_manifest, fmt.Errorf("begin run: %w", err))
	}
	return runID
}

func (c *Client) recordSubject(ctx context.Context, runID int64, code, name, fileName string, size int) {
	if c.manifest == nil || runID == 0 {
		return
	}
	err := c.manifest.RecordSubject(ctx, runID, code, name, fileName, size)
	if err != nil {
		c.tel.ReportWarning(report_client_manifest, fmt.Errorf("record subject %s: %w", code, err))
	}
}

func (c *Client) finishRun(ctx context.Context, runID int64, captured int, succeeded bool) {
	if c.manifest == nil || runID == 0 {
		return
	}
	// the run is finished even if ctx was cancelled mid capture
	err := c.manifest.FinishRun(context.WithoutCancel(ctx), runID, captured, succeeded)
	if err != nil {
		c.tel.ReportWarning(report_client_manifest, fmt.Errorf("finish run: %w", err))
	}
}
