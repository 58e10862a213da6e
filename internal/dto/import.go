package dto

// RowError pins a validation failure to its CSV row (header-offset numbering).
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult is the aggregate outcome of a bulk CSV import. A failed row
// never aborts the batch; earlier successes stand.
type ImportResult struct {
	Total   int        `json:"total"`
	Success int        `json:"success"`
	Errors  []RowError `json:"errors"`
}
