package ai

import (
	"testing"
)

func TestUnmarshalFlexible_AnalysisVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  analysisResponse
	}{
		{
			name:  "valid json object",
			input: `{"depth":4,"engagement":0.8}`,
			want:  analysisResponse{Depth: 4, Engagement: 0.8},
		},
		{
			name:  "unquoted keys",
			input: `{depth: 4, sentiment: 0.5}`,
			want:  analysisResponse{Depth: 4, Sentiment: 0.5},
		},
		{
			name:  "trailing comma",
			input: `{"depth":3,"hedging":0.2,}`,
			want:  analysisResponse{Depth: 3, Hedging: 0.2},
		},
		{
			name:  "missing endbracket",
			input: `{"depth":2,"uncertainty":0.9`,
			want:  analysisResponse{Depth: 2, Uncertainty: 0.9},
		},
		{
			name:  "stringified invalid json object",
			input: `"{depth: 5, engagement: 1}"`,
			want:  analysisResponse{Depth: 5, Engagement: 1},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"depth\": 4,\n  \"ambiguity\": 0.1\n}\n",
			want:  analysisResponse{Depth: 4, Ambiguity: 0.1},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "depth": 1 }`,
			want:  analysisResponse{Depth: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got analysisResponse
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ExtractionVariants(t *testing.T) {
	input := `{concepts:[{label:'battery life',type:'attribute'},{label:'peace of mind',type:'value',},],relationships:[]}`
	var got ExtractionResult
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got.Concepts) != 2 || got.Concepts[0].Label != "battery life" || got.Concepts[1].Type != "value" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two concepts", got)
	}
	if len(got.Relationships) != 0 {
		t.Fatalf("UnmarshalFlexible() relationships = %+v, want none", got.Relationships)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	var got analysisResponse
	if err := UnmarshalFlexible("the answer was quite deep", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_StringifiedExtraction(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ExtractionResult
	}{
		{
			name:  "simple stringified",
			input: `"{ \"concepts\": [ { \"label\": \"long battery life\", \"type\": \"attribute\", \"confidence\": 0.9 } ], \"relationships\": [] }"`,
			want: ExtractionResult{
				Concepts: []ExtractedConcept{{Label: "long battery life", Type: "attribute", Confidence: 0.9}},
			},
		},
		{
			name:  "stringified with newlines",
			input: `"{\n  \"concepts\": [],\n  \"relationships\": [{\"source\": \"long battery life\", \"target\": \"less charging anxiety (e.g., on trips)\", \"type\": \"leads_to\", \"confidence\": 0.8}]\n  }\n"`,
			want: ExtractionResult{
				Relationships: []ExtractedRelationship{{Source: "long battery life", Target: "less charging anxiety (e.g., on trips)", Type: "leads_to", Confidence: 0.8}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got ExtractionResult
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if len(got.Concepts) != len(tc.want.Concepts) || len(got.Relationships) != len(tc.want.Relationships) {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
			for i, c := range tc.want.Concepts {
				if got.Concepts[i] != c {
					t.Fatalf("concept %d = %+v, want %+v", i, got.Concepts[i], c)
				}
			}
			for i, r := range tc.want.Relationships {
				if got.Relationships[i] != r {
					t.Fatalf("relationship %d = %+v, want %+v", i, got.Relationships[i], r)
				}
			}
		})
	}
}
