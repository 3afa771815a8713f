package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/qualcode/nucleus/pkg/domain"
)

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed batches a slice of fragment texts through the embeddings
// endpoint and returns one dense vector per input, in input order.
// Ingestion aborts the whole batch on any failure here, per the
// partial-ingest-result contract.
func (g *Gateway) Embed(ctx context.Context, modelAlias string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := g.resolveModel(modelAlias)

	body, err := json.Marshal(embeddingsRequest{Model: model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapUpstream(err, "embeddings request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, domain.WrapUpstream(fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)), "embeddings")
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, domain.NewValidationError(fmt.Sprintf("embeddings response returned %d vectors for %d inputs", len(parsed.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, domain.NewValidationError("embeddings response index out of range")
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
