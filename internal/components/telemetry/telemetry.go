package telemetry

import (
	"fmt"
)

// API is what scraper components report through instead of logging
// directly, so tests can assert on what was reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports that a component can no longer do its job, most
	// often because the portal's markup no longer looks like what the
	// component expects.
	//
	// `id` names the component, not the line that failed: a missing term
	// selector in DumpTermList is reported as `client.dump-term-list`. Put
	// the specifics in params or wrap them into the error.
	//
	// ids are lowercase, dots separate components and dashes separate words
	// of a method name. Do not repeat the level in the id, `client.login`
	// rather than `client.login-broken`.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something worth a look that does not stop the
	// component from working, ex. rejected credentials.
	ReportWarning(id string, params ...any)

	// ReportDebug reports tracing information that is dropped outside of
	// verbose runs.
	ReportDebug(msg string, params ...any)

	// ReportCount reports how many of something a component saw at this
	// point in time, counts are samples and are never summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id reported through it with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
