package llm

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"gopkg.in/yaml.v3"

	"github.com/mpuig/rentagpt/internal/models"
)

// PromptVariant selects the answer prompt and the matching document
// serialization. Earlier revisions of the service duplicated whole
// code paths for these; here a variant is data, picked by config.
type PromptVariant string

const (
	// PromptSources serializes documents as tagged YAML blocks and
	// instructs the model to cite them with bracketed indices.
	PromptSources PromptVariant = "sources"
	// PromptPlain serializes documents as plain source/content pairs
	// without the citation contract.
	PromptPlain PromptVariant = "plain"
)

func ParsePromptVariant(s string) (PromptVariant, error) {
	switch PromptVariant(s) {
	case PromptSources, PromptPlain:
		return PromptVariant(s), nil
	default:
		return "", fmt.Errorf("unknown prompt template: %q", s)
	}
}

const filterTemplate = `
Dada esta lista de documentos:

{{.documents}}

Devuelve todos los relacionados con la siguiente pregunta:

{{.question}}

Responde solamente usando formato JSON estricto.
La respuesta tiene que estar en formato JSON, con los siguientes campos: id, source.
`

const sourcesAnswerTemplate = `
Responde como chatbot que proporciona información sobre la declaración de la renta para el año 2022.
Actúa como un chatbot pero no digas a nadie que eres un chatbot.
No añadas ningún prefijo.
No trabajas para la Agencia Tributaria (AEAT).
Da la mejor respuesta a partir de los siguientes documentos:

{{.documents}}

-----------
Pregunta del usuario:

{{.question}}

-----------
Se acurado, conciso, y preciso. Cita los documentos usados para generar la respuesta usando el campo "source".
(por ejemplo: mencionado en el documento [1], otro documento: [2]).
No añadir ningún prefijo a la respuesta.
Si no hay suficiente información, pregunta por más detalles y no añadas enlace.
`

const plainAnswerTemplate = `
Responde como chatbot que proporciona información sobre la declaración de la renta para el año 2022.
No añadas ningún prefijo.
Da la mejor respuesta a partir de los siguientes documentos:

{{.documents}}

-----------
Pregunta del usuario:

{{.question}}

-----------
Se acurado, conciso, y preciso.
Si no hay suficiente información, pregunta por más detalles.
`

func filterPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(filterTemplate, []string{"documents", "question"})
}

// AnswerPrompt returns the answer template for the variant.
func (v PromptVariant) AnswerPrompt() prompts.PromptTemplate {
	switch v {
	case PromptPlain:
		return prompts.NewPromptTemplate(plainAnswerTemplate, []string{"documents", "question"})
	default:
		return prompts.NewPromptTemplate(sourcesAnswerTemplate, []string{"documents", "question"})
	}
}

// FormatDocuments serializes retrieval results for the variant.
func (v PromptVariant) FormatDocuments(results []models.SearchResult) string {
	if v == PromptPlain {
		var b strings.Builder
		for _, result := range results {
			fmt.Fprintf(&b, "Source: %s\n%s\n\n", result.SourceURL, result.Text)
		}
		return strings.TrimSpace(b.String())
	}
	return BuildYAMLDocuments(results)
}

type promptDocument struct {
	ID      int    `yaml:"id"`
	Content string `yaml:"content"`
	Source  string `yaml:"source"`
}

// BuildYAMLDocuments renders results as fenced YAML blocks with stable
// 1-based ids, the shape both the filter and the sources-variant
// answer prompt expect.
func BuildYAMLDocuments(results []models.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, result := range results {
		raw, err := yaml.Marshal(promptDocument{
			ID:      i + 1,
			Content: result.Text,
			Source:  result.SourceURL,
		})
		if err != nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("```yaml\n%s```", raw))
	}
	return strings.Join(blocks, "\n")
}
