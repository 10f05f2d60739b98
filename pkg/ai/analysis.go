package ai

import (
	"context"
	"fmt"

	"github.com/delve-hq/delve/backend/internal/util"
	"github.com/delve-hq/delve/backend/pkg/common"
)

type analysisResponse struct {
	Depth       float64 `json:"depth" jsonschema_description:"Elaboration depth of the answer on a 1.0-5.0 scale"`
	Sentiment   float64 `json:"sentiment" jsonschema_description:"Emotional valence from -1.0 to 1.0"`
	Uncertainty float64 `json:"uncertainty" jsonschema_description:"How unsure the respondent is, 0.0-1.0"`
	Ambiguity   float64 `json:"ambiguity" jsonschema_description:"How open to multiple readings the answer is, 0.0-1.0"`
	Hedging     float64 `json:"hedging" jsonschema_description:"Density of hedging qualifiers, 0.0-1.0"`
	Engagement  float64 `json:"engagement" jsonschema_description:"Willingness to keep elaborating, 0.0-1.0"`
}

// AnalyzeResponse scores one respondent answer on the quality dimensions the
// selection engine weighs. Out-of-range model output is clamped rather than
// rejected; a missing or failed analysis is an error because the engine
// cannot select without it.
func AnalyzeResponse(
	ctx context.Context,
	client InterviewAIClient,
	question string,
	answer string,
	opts ...GenerateOption,
) (*common.ResponseAnalysis, error) {
	prompt := fmt.Sprintf(AnalysisPrompt, question, answer)

	var res analysisResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"response_analysis",
		"Quality scores for a single interview response",
		prompt,
		&res,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze response: %w", err)
	}

	return &common.ResponseAnalysis{
		Depth:       clamp(res.Depth, 1, 5),
		Sentiment:   clamp(res.Sentiment, -1, 1),
		Uncertainty: util.Clamp01(res.Uncertainty),
		Ambiguity:   util.Clamp01(res.Ambiguity),
		Hedging:     util.Clamp01(res.Hedging),
		Engagement:  util.Clamp01(res.Engagement),
	}, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
