package deepgram

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel    = "nova-2"
	defaultLanguage = "vi"
)

// TranscriptionClient streams user audio to Deepgram's live transcription
// endpoint. A client serves one stream at a time.
type TranscriptionClient struct {
	apiKey   string
	endpoint string
	model    string
	language string

	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time
	cancel    context.CancelFunc
}

type ClientOption func(*TranscriptionClient)

func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
		endpoint: defaultEndpoint,
		model:    defaultModel,
		language: defaultLanguage,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) {
		c.apiKey = apiKey
	}
}

// WithEndpoint overrides the listen URL. Mostly useful for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TranscriptionClient) {
		c.endpoint = endpoint
	}
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		c.model = model
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) {
		c.language = language
	}
}
