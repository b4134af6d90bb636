package pipeline

// Result holds the terminal outcome of a processed candidate.
type Result struct {
	URL      string
	State    State
	PdfPath  string
	RecordID int64
	Error    error

	// Fatal marks a storage fault. One fatal result aborts the run:
	// without a working store the audit trail can no longer be kept.
	Fatal bool
}

// ItemOutput is the structured per-candidate output for run reports.
type ItemOutput struct {
	URL     string `json:"url"`
	State   string `json:"state"`
	PdfPath string `json:"pdf_path,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r Result) Output() ItemOutput {
	out := ItemOutput{
		URL:     r.URL,
		State:   string(r.State),
		PdfPath: r.PdfPath,
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}
