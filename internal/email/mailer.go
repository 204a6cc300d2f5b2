package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// Message es un e-mail de texto plano.
type Message struct {
	To      string // dirección
	ToName  string // nombre para mostrar; opcional
	Subject string
	Body    string
}

// Mailer envía un Message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// DefaultCodeTemplate es el cuerpo del e-mail con el código.
const DefaultCodeTemplate = "Hello {{.Name}}, this is your code: {{.Code}}\n"

// CodeVars son las variables de la plantilla del código.
type CodeVars struct {
	Name string
	Code string
}

// CodeTemplate renderiza el cuerpo del e-mail de verificación.
type CodeTemplate struct {
	t *template.Template
}

// ParseCodeTemplate compila src; vacío usa DefaultCodeTemplate.
func ParseCodeTemplate(src string) (*CodeTemplate, error) {
	if src == "" {
		src = DefaultCodeTemplate
	}
	t, err := template.New("code").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("email: parse code template: %w", err)
	}
	return &CodeTemplate{t: t}, nil
}

// MustCodeTemplate es ParseCodeTemplate que paniquea; solo para plantillas constantes.
func MustCodeTemplate(src string) *CodeTemplate {
	t, err := ParseCodeTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Render ejecuta la plantilla.
func (c *CodeTemplate) Render(v CodeVars) (string, error) {
	var buf bytes.Buffer
	if err := c.t.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("email: render code template: %w", err)
	}
	return buf.String(), nil
}
