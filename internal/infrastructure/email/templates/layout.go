// Package templates provides email template layout
package templates

import (
	"bytes"
	"html/template"
)

type EmailLayoutProps struct {
	Preheader  string
	Content    string
	FooterText string
}

// Internal template data structure with safe HTML typing
type emailTemplateData struct {
	Preheader  string
	Content    template.HTML // rendered by this package, already escaped
	FooterText string
}

var emailLayoutTemplate = template.Must(template.New("emailLayout").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; line-height: 1.3; background-color: #f4f5f6; margin: 0; padding: 16px;">
    <span style="display: none; max-height: 0; overflow: hidden;">{{.Preheader}}</span>
    <div style="background: #ffffff; border: 1px solid #eaebed; border-radius: 16px; padding: 24px; max-width: 600px; margin: 0 auto;">
      {{.Content}}
    </div>
    {{if .FooterText}}<p style="color: #9a9ea6; font-size: 12px; text-align: center;">{{.FooterText}}</p>{{end}}
  </body>
</html>`))

// GetEmailLayout wraps content in the shared layout.
func GetEmailLayout(props EmailLayoutProps) (string, error) {
	var buf bytes.Buffer
	err := emailLayoutTemplate.Execute(&buf, emailTemplateData{
		Preheader:  props.Preheader,
		Content:    template.HTML(props.Content),
		FooterText: props.FooterText,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
