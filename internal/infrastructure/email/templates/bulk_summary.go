package templates

import (
	"bytes"
	"html/template"
)

// FailureLine is one failed item in a bulk summary.
type FailureLine struct {
	SourcePostID int64
	Code         string
	Message      string
}

type BulkSummaryProps struct {
	BatchID      string
	SourceTenant string
	DestTenant   string
	Requested    int
	Succeeded    int
	Failed       int
	Failures     []FailureLine
}

var bulkSummaryTemplate = template.Must(template.New("bulkSummary").Parse(`
<h2 style="margin: 0 0 16px;">Duplication finished</h2>
<p>{{.Succeeded}} of {{.Requested}} posts were duplicated from <strong>{{.SourceTenant}}</strong> to <strong>{{.DestTenant}}</strong>.</p>
{{if .Failed}}<p>{{.Failed}} failed:</p>
<ul>{{range .Failures}}<li>#{{.SourcePostID}} ({{.Code}}): {{.Message}}</li>{{end}}</ul>{{end}}
<p style="color: #9a9ea6; font-size: 12px;">Batch {{.BatchID}}</p>`))

// GetBulkSummaryContent renders the body of the bulk duplication email.
func GetBulkSummaryContent(props BulkSummaryProps) (string, error) {
	var buf bytes.Buffer
	if err := bulkSummaryTemplate.Execute(&buf, props); err != nil {
		return "", err
	}
	return buf.String(), nil
}
