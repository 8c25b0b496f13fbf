package readiness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// DefaultIndexerInterval is the delay between indexer height samples
const DefaultIndexerInterval = 500 * time.Millisecond

const statusQuery = `{ _meta { status } }`

// IndexerClient queries the indexer status endpoint
type IndexerClient struct {
	url     string
	chainID string
	http    *http.Client
}

// NewIndexerClient creates a status client for the configured indexer
func NewIndexerClient(cfg *domain.Config) *IndexerClient {
	indexer := cfg.Env.Indexer
	return &IndexerClient{
		url:     strings.TrimRight(indexer.URL, "/") + indexer.StatusPath,
		chainID: indexer.ChainID,
		http:    &http.Client{Timeout: checkTimeout},
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type statusResponse struct {
	Data *struct {
		Meta struct {
			Status map[string]struct {
				Block *struct {
					Number *uint64 `json:"number"`
				} `json:"block"`
			} `json:"status"`
		} `json:"_meta"`
	} `json:"data"`
	Errors []json.RawMessage `json:"errors"`
}

// BlockHeight returns the latest block the indexer has processed for the chain.
// A missing block number reads as 0.
func (c *IndexerClient) BlockHeight(ctx context.Context) (uint64, error) {
	body, err := json.Marshal(graphQLRequest{Query: statusQuery, Variables: map[string]any{}})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read status: %w", err)
	}

	var status statusResponse
	if err := json.Unmarshal(data, &status); err != nil {
		return 0, fmt.Errorf("failed to parse status: %w", err)
	}
	if len(status.Errors) > 0 {
		return 0, fmt.Errorf("status query failed: %s", status.Errors[0])
	}
	if status.Data == nil {
		return 0, errors.New("status response has no data")
	}

	chain, ok := status.Data.Meta.Status[c.chainID]
	if !ok {
		return 0, fmt.Errorf("no status for chain %s", c.chainID)
	}
	if chain.Block == nil || chain.Block.Number == nil {
		return 0, nil
	}
	return *chain.Block.Number, nil
}

// HeightSource reports the indexed block height
type HeightSource interface {
	BlockHeight(ctx context.Context) (uint64, error)
}

// IndexerWaiter blocks until the indexer has caught up with the chain
type IndexerWaiter struct {
	Interval time.Duration

	resources *Waiter
	source    HeightSource
	url       string
	service   string
	verbosity int
	out       io.Writer
	log       *slog.Logger
}

// NewIndexerWaiter creates an indexer waiter for the configured indexer
func NewIndexerWaiter(resources *Waiter, source HeightSource, cfg *domain.Config, streams usecase.Streams, log *slog.Logger) *IndexerWaiter {
	return &IndexerWaiter{
		Interval:  DefaultIndexerInterval,
		resources: resources,
		source:    source,
		url:       cfg.Env.Indexer.URL,
		service:   cfg.Env.Indexer.Service,
		verbosity: cfg.Options.Verbosity,
		out:       streams.Out,
		log:       log.With("component", "IndexerWaiter"),
	}
}

// WaitForHeight waits for the indexer server, then samples its height until
// it reaches target. Failed samples count as height 0. Only ctx bounds the wait.
func (w *IndexerWaiter) WaitForHeight(ctx context.Context, target uint64) error {
	if w.url != "" && w.resources != nil {
		if err := w.resources.WaitForResources(ctx, w.url); err != nil {
			return err
		}
	}

	_, err := retry.DoWithData(
		func() (uint64, error) {
			height, err := w.source.BlockHeight(ctx)
			if err != nil {
				w.log.Debug("indexer status unavailable", "error", err)
				height = 0
			}
			if w.verbosity >= 1 {
				fmt.Fprintf(w.out, "%s at blockheight: %d, need %d\n", w.service, height, target)
			}
			if height < target {
				return height, fmt.Errorf("indexed to block %d of %d", height, target)
			}
			return height, nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(w.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
