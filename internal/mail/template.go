package mail

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

// InvitationData feeds the invitation email templates.
type InvitationData struct {
	TenantName  string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresIn   string
}

const invitationSubject = `You're invited to join {{ .TenantName }}`

const invitationText = `Hi,

{{ .InviterName }} invited you to join {{ .TenantName }} as {{ .Role | title }}.

Accept the invitation here:

    {{ .AcceptURL }}

The link expires in {{ .ExpiresIn }}. If you weren't expecting this
invitation you can ignore this email.
`

const invitationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <h2>You're invited to join {{ .TenantName }}</h2>
  <p>{{ .InviterName }} invited you to join <strong>{{ .TenantName }}</strong> as <strong>{{ .Role | title }}</strong>.</p>
  <p>
    <a href="{{ .AcceptURL }}" style="background: #2563eb; color: #fff; padding: 10px 20px; border-radius: 4px; text-decoration: none;">
      Accept invitation
    </a>
  </p>
  <p style="color: #616e7c; font-size: 13px;">
    The link expires in {{ .ExpiresIn }}. If you weren't expecting this invitation you can ignore this email.
  </p>
</body>
</html>
`

var (
	subjectTmpl = texttemplate.Must(texttemplate.New("subject").Funcs(sprig.TxtFuncMap()).Parse(invitationSubject))
	textTmpl    = texttemplate.Must(texttemplate.New("text").Funcs(sprig.TxtFuncMap()).Parse(invitationText))
	htmlTmpl    = htmltemplate.Must(htmltemplate.New("html").Funcs(sprig.FuncMap()).Parse(invitationHTML))
)

// RenderInvitation renders the subject, plain text and HTML bodies of
// an invitation email.
func RenderInvitation(data InvitationData) (subject, text, html string, err error) {
	var sb, tb, hb strings.Builder
	if err = subjectTmpl.Execute(&sb, data); err != nil {
		return "", "", "", err
	}
	if err = textTmpl.Execute(&tb, data); err != nil {
		return "", "", "", err
	}
	if err = htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", "", err
	}
	return sb.String(), tb.String(), hb.String(), nil
}
