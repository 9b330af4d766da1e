package dto

import (
	"phrasecut/internal/clip"
	"phrasecut/internal/query"
	"phrasecut/internal/types"
)

type BuildIndexReq struct {
	Paths []string `json:"paths" binding:"required,min=1"`
}

type IndexSourceItem struct {
	ID    string `json:"id"`
	Grams int    `json:"grams"`
}

type IndexListResData struct {
	Sources    []IndexSourceItem `json:"sources"`
	TotalGrams int               `json:"total_grams"`
}

type ReloadIndexResData struct {
	Loaded []string          `json:"loaded"`
	Failed map[string]string `json:"failed,omitempty"`
}

type QueryReq struct {
	Query string `json:"query" binding:"required"`
	// Format selects the response body: "json" (default) wraps the result
	// in the standard envelope, "yaml" returns the bare result as YAML.
	Format string `json:"format"`
}

// ClipRunReq starts a clip run either from a stored segmentation result or
// from a query that is resolved first.
type ClipRunReq struct {
	Query  string        `json:"query"`
	Result *query.Result `json:"result"`
}

type ClipRunResData struct {
	RunID       string            `json:"run_id"`
	Status      string            `json:"status"`
	Total       int               `json:"total"`
	OutputDir   string            `json:"output_dir"`
	Diagnostics []clip.Diagnostic `json:"diagnostics"`
}

type ClipTaskItem struct {
	types.ClipTaskRecord
	DownloadURL string `json:"download_url,omitempty"`
}

type ClipRunDetailResData struct {
	RunID     string         `json:"run_id"`
	Query     string         `json:"query"`
	Status    string         `json:"status"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	CreatedAt string         `json:"created_at"`
	Tasks     []ClipTaskItem `json:"tasks"`
}

type ClipRunListResData struct {
	Runs []ClipRunDetailResData `json:"runs"`
}

type RetryRunResData struct {
	RunID   string `json:"run_id"`
	Retried int    `json:"retried"`
	Status  string `json:"status"`
}

type UploadFileResData struct {
	FilePath []string `json:"file_path"`
}

type HealthResData struct {
	Status  string   `json:"status"`
	Sources int      `json:"sources"`
	Media   []string `json:"media"`
}
