package export

// Dataset defines tabular report content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}
