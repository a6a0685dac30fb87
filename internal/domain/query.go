package domain

// Row is a single raw result row from the query backend, keyed by column name.
type Row map[string]interface{}

// QueryParams holds the named, typed parameters the fetch-latest query binds.
type QueryParams struct {
	// AppPackage is the application package identifier (e.g. "com.example.app").
	AppPackage string
	// AttributionID filters on the leading part of the referral source.
	// Empty means no attribution filter.
	AttributionID string
	// Cursor is the exclusive lower bound on event timestamps.
	Cursor int64
}

// QuerySpec is an immutable per-call description of one analytical query:
// final SQL text, its bound parameters, and the page size. It defines which
// result set a session walks; it is never mutated after construction.
type QuerySpec struct {
	SQL      string
	Location string
	Params   QueryParams
	MaxRows  int
}

// ResultPage is one page of rows fetched from a backend job. An empty
// PageToken means the job has no further pages.
type ResultPage struct {
	Rows      []Row
	PageToken string
}
