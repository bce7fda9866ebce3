package usecase

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"text/template"

	"qabot/internal/domain"
	"qabot/internal/observability"
	"qabot/internal/port"
)

//go:embed templates/rephrase.txt
var rephraseTemplateText string

var rephraseTemplate = template.Must(template.New("rephrase").Parse(rephraseTemplateText))

// ErrEmptyCompletion is returned when the model answers with only whitespace.
var ErrEmptyCompletion = errors.New("model returned an empty response")

// Persona is who the bot speaks as.
type Persona struct {
	Name    string
	Role    string
	Tone    string
	Speaker string // shown before each reply
}

// DefaultPersona returns the stock student persona.
func DefaultPersona() Persona {
	return Persona{
		Name:    "Madhuri",
		Role:    "A Student",
		Tone:    "friendly and conversational",
		Speaker: "Malavathu Madhuri",
	}
}

// RephraseUseCase turns a retrieved answer into a reply in the persona's voice.
type RephraseUseCase struct {
	completer port.Completer
	persona   Persona
}

// NewRephraseUseCase creates a new rephrase use case.
func NewRephraseUseCase(completer port.Completer, persona Persona) *RephraseUseCase {
	return &RephraseUseCase{
		completer: completer,
		persona:   persona,
	}
}

func (u *RephraseUseCase) Persona() Persona { return u.persona }

// Prompt renders the instruction sent to the model. Both the query and the
// retrieved answer appear verbatim.
func (u *RephraseUseCase) Prompt(query, answer string) string {
	var b strings.Builder
	// Execute only fails on writer errors, which strings.Builder never returns.
	_ = rephraseTemplate.Execute(&b, struct {
		Persona
		Query  string
		Answer string
	}{u.persona, query, answer})
	return b.String()
}

// Rephrase asks the model for a refined answer. Failures and empty
// completions come back as *domain.RephraseError.
func (u *RephraseUseCase) Rephrase(ctx context.Context, query, answer string) (string, error) {
	ctx, span := observability.StartRephraseSpan(ctx, u.completer.ModelName())
	defer span.End()

	out, err := u.completer.Complete(ctx, u.Prompt(query, answer))
	if err != nil {
		err = &domain.RephraseError{Model: u.completer.ModelName(), Err: err}
		observability.RecordError(span, err)
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		err = &domain.RephraseError{Model: u.completer.ModelName(), Err: ErrEmptyCompletion}
		observability.RecordError(span, err)
		return "", err
	}
	return out, nil
}
