package ai

import (
	"context"
	"fmt"
	"strings"
)

// Concept and relationship types the extraction prompt allows. Unknown types
// coming back from the model are kept verbatim; the graph layer treats the
// type as an opaque label.
var (
	ConceptTypes      = []string{"attribute", "consequence", "value", "goal", "barrier", "emotion"}
	RelationshipTypes = []string{"leads_to", "enables", "blocks", "motivates", "part_of"}
)

// ExtractedConcept is one concept voiced in a single answer.
type ExtractedConcept struct {
	Label      string  `json:"label" jsonschema_description:"Short noun-phrase label for the concept"`
	Type       string  `json:"type" jsonschema_description:"One of: attribute, consequence, value, goal, barrier, emotion"`
	Confidence float64 `json:"confidence" jsonschema_description:"How explicitly the respondent voiced the concept, 0.0-1.0"`
	Excerpt    string  `json:"excerpt" jsonschema_description:"Verbatim fragment of the answer supporting the concept"`
}

// ExtractedRelationship links two concept labels voiced in the answer.
type ExtractedRelationship struct {
	Source     string  `json:"source" jsonschema_description:"Label of the source concept"`
	Target     string  `json:"target" jsonschema_description:"Label of the target concept"`
	Type       string  `json:"type" jsonschema_description:"One of: leads_to, enables, blocks, motivates, part_of"`
	Confidence float64 `json:"confidence" jsonschema_description:"How explicitly the link was stated, 0.0-1.0"`
}

// ExtractionResult is the structured output of one extraction call.
type ExtractionResult struct {
	Concepts      []ExtractedConcept      `json:"concepts" jsonschema_description:"Concepts voiced in the answer"`
	Relationships []ExtractedRelationship `json:"relationships" jsonschema_description:"Relationships voiced in the answer"`
}

// ExtractConcepts pulls concepts and relationships out of one answer. Known
// concept labels are passed in so the model reuses them instead of minting
// near-duplicates; an empty result is valid, not an error.
func ExtractConcepts(
	ctx context.Context,
	client InterviewAIClient,
	topic string,
	question string,
	answer string,
	knownLabels []string,
	opts ...GenerateOption,
) (*ExtractionResult, error) {
	prompt := fmt.Sprintf(ExtractionPrompt, topic, question, answer, strings.Join(knownLabels, ", "))

	var res ExtractionResult
	err := client.GenerateCompletionWithFormat(
		ctx,
		"concept_extraction",
		"Concepts and relationships voiced in a single interview answer",
		prompt,
		&res,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract concepts: %w", err)
	}

	for i := range res.Concepts {
		res.Concepts[i].Type = strings.ToLower(strings.TrimSpace(res.Concepts[i].Type))
	}
	for i := range res.Relationships {
		res.Relationships[i].Type = strings.ToLower(strings.TrimSpace(res.Relationships[i].Type))
	}
	return &res, nil
}
