package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/envutil"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/httpx"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

// Embedder produces query/document embeddings via the Voyage AI REST API.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type embedder struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
}

func NewEmbedder(log *logger.Logger) (Embedder, error) {
	apiKey := strings.TrimSpace(os.Getenv("VOYAGE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing VOYAGE_API_KEY")
	}
	return &embedder{
		log:        log.With("service", "VoyageEmbedder"),
		baseURL:    strings.TrimRight(envutil.String("VOYAGE_BASE_URL", "https://api.voyageai.com"), "/"),
		apiKey:     apiKey,
		model:      envutil.String("VOYAGE_EMBED_MODEL", "voyage-3"),
		maxRetries: envutil.Int("VOYAGE_MAX_RETRIES", 2),
		httpClient: &http.Client{Timeout: envutil.Seconds("VOYAGE_TIMEOUT_SECONDS", 30*time.Second)},
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type voyageHTTPError struct {
	StatusCode int
	Body       string
}

func (e *voyageHTTPError) Error() string {
	return fmt.Sprintf("voyage http error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *voyageHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (e *embedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	var out embeddingsResponse
	if err := e.do(ctx, "/v1/embeddings", embeddingsRequest{Model: e.model, Input: inputs}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("voyage: expected %d embeddings, got %d", len(inputs), len(out.Data))
	}

	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *embedder) do(ctx context.Context, path string, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := e.doOnce(ctx, path, body)
		if err == nil {
			return json.Unmarshal(raw, out)
		}
		if !httpx.IsRetryableError(err) || attempt == e.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		e.log.Warn("Voyage request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (e *embedder) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &voyageHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
