package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/delve-hq/delve/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// InterviewOllamaClient implements the ai.InterviewAIClient interface using
// Ollama as the backend, for deployments running interviews against
// locally-hosted models.
type InterviewOllamaClient struct {
	embeddingModel string
	analysisModel  string
	questionModel  string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewInterviewOllamaClientParams contains configuration options for creating
// a new InterviewOllamaClient.
type NewInterviewOllamaClientParams struct {
	EmbeddingModel string
	AnalysisModel  string
	QuestionModel  string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewInterviewOllamaClient creates a new Ollama-based AI client with the
// specified configuration. It connects to the Ollama server at the given
// BaseURL (or the default if empty) and uses the configured models for
// analysis, question generation and embeddings.
func NewInterviewOllamaClient(
	params NewInterviewOllamaClientParams,
) (*InterviewOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	if params.MaxConcurrentRequests < 1 {
		params.MaxConcurrentRequests = 1
	}
	sem := semaphore.NewWeighted(params.MaxConcurrentRequests)

	return &InterviewOllamaClient{
		embeddingModel: params.EmbeddingModel,
		analysisModel:  params.AnalysisModel,
		questionModel:  params.QuestionModel,

		reqLock: sem,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}
