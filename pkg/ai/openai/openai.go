package openai

import (
	"sync"

	"github.com/delve-hq/delve/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// InterviewOpenAIClient implements ai.InterviewAIClient against an
// OpenAI-compatible API. It manages separate clients for embeddings and
// chat/completion tasks since deployments often route those to different
// endpoints.
//
// An InterviewOpenAIClient should be created using NewInterviewOpenAIClient.
type InterviewOpenAIClient struct {
	embeddingModel string
	analysisModel  string
	questionModel  string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewInterviewOpenAIClientParams defines the configuration parameters for
// creating a new InterviewOpenAIClient.
//
// AnalysisModel handles structured calls (response analysis, extraction),
// QuestionModel handles free-text question generation, EmbeddingModel
// produces concept embeddings for the canonical layer.
type NewInterviewOpenAIClientParams struct {
	EmbeddingModel string
	AnalysisModel  string
	QuestionModel  string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string
}

// NewInterviewOpenAIClient creates and returns a new client configured with
// the provided parameters.
//
// Example:
//
//	params := openai.NewInterviewOpenAIClientParams{
//		EmbeddingModel: "text-embedding-3-small",
//		AnalysisModel:  "gpt-4o-mini",
//		QuestionModel:  "gpt-4o-mini",
//		ChatKey:        os.Getenv("OPENAI_API_KEY"),
//		EmbeddingKey:   os.Getenv("OPENAI_API_KEY"),
//	}
//	client := openai.NewInterviewOpenAIClient(params)
func NewInterviewOpenAIClient(
	params NewInterviewOpenAIClientParams,
) *InterviewOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	return &InterviewOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		analysisModel:  params.AnalysisModel,
		questionModel:  params.QuestionModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
