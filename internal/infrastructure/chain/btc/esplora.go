package btc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/copays/copayd/pkg/circuitbreaker"
)

const requestsPerSecond = 10

type utxoResponse struct {
	TxId  string `json:"txid"`
	VOut  uint32 `json:"vout"`
	Value uint64 `json:"value"`
}

type txStatusResponse struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
}

type esploraClient struct {
	apiURL     string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	cb         *gobreaker.CircuitBreaker
}

func newEsploraClient(apiURL string, requestTimeout time.Duration) *esploraClient {
	return &esploraClient{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    ratelimit.New(requestsPerSecond),
		cb:         circuitbreaker.NewCircuitBreaker(),
	}
}

func (c *esploraClient) getUtxos(
	ctx context.Context, address string,
) ([]utxoResponse, error) {
	url := fmt.Sprintf("%s/address/%s/utxo", c.apiURL, address)
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("retrieving utxos: %w", err)
	}

	var utxos []utxoResponse
	if err := json.Unmarshal([]byte(resp), &utxos); err != nil {
		return nil, fmt.Errorf("retrieving utxos: %w", err)
	}
	return utxos, nil
}

func (c *esploraClient) broadcastTx(
	ctx context.Context, txHex string,
) (string, error) {
	url := fmt.Sprintf("%s/tx", c.apiURL)
	txid, err := c.post(ctx, url, txHex)
	if err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}
	return strings.TrimSpace(txid), nil
}

func (c *esploraClient) getTxStatus(
	ctx context.Context, txid string,
) (*txStatusResponse, error) {
	url := fmt.Sprintf("%s/tx/%s/status", c.apiURL, txid)
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("retrieving tx status: %w", err)
	}

	status := &txStatusResponse{}
	if err := json.Unmarshal([]byte(resp), status); err != nil {
		return nil, fmt.Errorf("retrieving tx status: %w", err)
	}
	return status, nil
}

func (c *esploraClient) getTipHeight(ctx context.Context) (uint32, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", c.apiURL)
	resp, err := c.get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("retrieving tip height: %w", err)
	}

	height, err := strconv.ParseUint(strings.TrimSpace(resp), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("retrieving tip height: %w", err)
	}
	return uint32(height), nil
}

func (c *esploraClient) get(ctx context.Context, url string) (string, error) {
	return c.doRequest(ctx, "GET", url, "")
}

func (c *esploraClient) post(ctx context.Context, url, body string) (string, error) {
	return c.doRequest(ctx, "POST", url, body)
}

func (c *esploraClient) doRequest(
	ctx context.Context, method, url, body string,
) (string, error) {
	c.limiter.Take()

	resp, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(
			ctx, method, url, strings.NewReader(body),
		)
		if err != nil {
			return nil, err
		}

		rs, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer rs.Body.Close()

		bodyBytes, err := io.ReadAll(rs.Body)
		if err != nil {
			return nil, err
		}
		if rs.StatusCode != http.StatusOK {
			return nil, errors.New(string(bodyBytes))
		}
		return string(bodyBytes), nil
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}
