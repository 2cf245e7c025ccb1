package service

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingService turns text into a fixed-length vector for semantic
// search over traces.
type EmbeddingService interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type OpenAIEmbeddingService struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbeddingService(apiKey string) *OpenAIEmbeddingService {
	return &OpenAIEmbeddingService{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}
}

func (s *OpenAIEmbeddingService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}
