package notify

import (
	"os"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// Templates holds the outbound message templates. Fields left empty in
// a template file fall back to the defaults.
type Templates struct {
	SMS          string `yaml:"sms"`
	EmailSubject string `yaml:"email_subject"`
	EmailBody    string `yaml:"email_body"`
}

// DefaultTemplates returns the built-in outreach wording.
func DefaultTemplates() Templates {
	return Templates{
		SMS: "Hi {{or .Listing.AgentName \"there\"}}, I saw your short-sale listing at " +
			"{{.Listing.Address}}. Are you open to discussing?",
		EmailSubject: "Your short-sale listing at {{.Listing.Address}}",
		EmailBody: "Hi {{or .Listing.AgentName \"there\"}},\n\n" +
			"I came across your short-sale listing at {{.Listing.Address}} and would " +
			"like to discuss it. Are you available for a quick call?\n",
	}
}

// LoadTemplates reads a YAML template file, filling missing fields from
// the defaults. An empty path returns the defaults unchanged.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, eris.Wrap(err, "notify: read template file")
	}

	var loaded Templates
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return t, eris.Wrap(err, "notify: parse template file")
	}

	if loaded.SMS != "" {
		t.SMS = loaded.SMS
	}
	if loaded.EmailSubject != "" {
		t.EmailSubject = loaded.EmailSubject
	}
	if loaded.EmailBody != "" {
		t.EmailBody = loaded.EmailBody
	}
	return t, nil
}

func render(name, tmpl string, lead model.Lead) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", eris.Wrapf(err, "notify: parse %s template", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, lead); err != nil {
		return "", eris.Wrapf(err, "notify: render %s template", name)
	}
	return b.String(), nil
}

// RenderSMS produces the SMS text for a lead.
func (t Templates) RenderSMS(lead model.Lead) (string, error) {
	return render("sms", t.SMS, lead)
}

// RenderEmail produces the subject and body for a lead.
func (t Templates) RenderEmail(lead model.Lead) (subject, body string, err error) {
	subject, err = render("email_subject", t.EmailSubject, lead)
	if err != nil {
		return "", "", err
	}
	body, err = render("email_body", t.EmailBody, lead)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}
