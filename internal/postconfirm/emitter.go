package postconfirm

import (
	"bytes"
	"context"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

// mustacheVar matches the operator-facing {{var}} substitution syntax so it
// can be adapted into valid text/template syntax ({{.var}}) before parsing.
var mustacheVar = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

func adaptMustache(src string) string {
	return mustacheVar.ReplaceAllString(src, "{{.${1}}}")
}

// ChallengeInput carries everything the emitter needs to render and send one
// challenge email.
type ChallengeInput struct {
	Sender      string
	Subject     string
	Recipients  []string
	ChallengeID string
	Reference   string
}

// Emitter renders the challenge body from the operator's template and hands
// the resulting message to the relayer.
type Emitter struct {
	templatePath string
	adminAddress string
	relayer      Relayer
	log          log.Logger
}

// NewEmitter constructs an Emitter. templatePath is re-read and re-parsed on
// every Emit call so operators can edit the template live.
func NewEmitter(templatePath, adminAddress string, relayer Relayer, logger log.Logger) *Emitter {
	return &Emitter{templatePath: templatePath, adminAddress: adminAddress, relayer: relayer, log: logger}
}

func (e *Emitter) Emit(ctx context.Context, in ChallengeInput) error {
	raw, err := os.ReadFile(e.templatePath)
	if err != nil {
		return err
	}

	tmpl, err := template.New("challenge").Parse(adaptMustache(string(raw)))
	if err != nil {
		return err
	}

	data := map[string]string{
		"subject":           in.Subject,
		"sender_address":    in.Sender,
		"recipient_address": strings.Join(in.Recipients, ", "),
		"admin_address":     e.adminAddress,
		"id":                in.ChallengeID,
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return err
	}

	if len(in.Recipients) == 0 {
		return nil
	}

	headers := []Header{
		{Name: "From", Value: " " + in.Recipients[0]},
		{Name: "To", Value: " " + in.Sender},
		{Name: "Subject", Value: FormatChallengeSubject(in.Reference)},
	}
	raw2 := ReformMessage(headers, body.Bytes())

	if err := e.relayer.Sendmail(ctx, in.Recipients[0], []string{in.Sender}, raw2); err != nil {
		e.log.Error("challenge relay failed", err, "sender", in.Sender)
		return err
	}

	return nil
}
