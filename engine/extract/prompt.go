package extract

import (
	"fmt"
	"strings"
)

// PromptConfig carries the placeholders filled into the extraction and
// gleaning prompt templates (SPEC_FULL.md §4.4.1).
type PromptConfig struct {
	EntityTypes []string
	Language    string
}

const systemPromptTemplate = `You are a knowledge graph extraction system. Given a chunk of text, extract entities and relationships.

Entity types to extract: {entity_types}
Output language: {language}

For each entity, output one line:
entity` + tupleDelimiter + `<name>` + tupleDelimiter + `<type>` + tupleDelimiter + `<description>

For each relationship, output one line:
relation` + tupleDelimiter + `<source>` + tupleDelimiter + `<target>` + tupleDelimiter + `<keywords>` + tupleDelimiter + `<description>

Text to analyze:
{input_text}

When finished, emit a final line containing only: ` + completionDelimiter

const gleaningUserPrompt = `MANY ENTITIES AND RELATIONS WERE MISSED IN THE LAST EXTRACTION. Using the same format as before, output ONLY the additional entities and relationships that were missed. If nothing was missed, output only: ` + completionDelimiter

// BuildSystemPrompt fills the system-prompt template for the initial
// extraction pass.
func BuildSystemPrompt(cfg PromptConfig, inputText string) string {
	p := systemPromptTemplate
	p = strings.ReplaceAll(p, "{entity_types}", strings.Join(cfg.EntityTypes, ", "))
	p = strings.ReplaceAll(p, "{language}", cfg.Language)
	p = strings.ReplaceAll(p, "{input_text}", inputText)
	return p
}

// BuildGleaningPrompt embeds the original chunk text and the previous LLM
// response, per SPEC_FULL.md §4.4.5 step 1.
func BuildGleaningPrompt(cfg PromptConfig, inputText, previousResponse string) string {
	return fmt.Sprintf(
		"Entity types: %s\nLanguage: %s\n\nOriginal text:\n%s\n\nPrevious extraction:\n%s\n\n%s",
		strings.Join(cfg.EntityTypes, ", "), cfg.Language, inputText, previousResponse, gleaningUserPrompt,
	)
}
