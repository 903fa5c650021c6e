// stork — клиент API Stork: статистика аккаунта, подписанные цены и отправка валидаций.
package stork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/models"
)

// ErrMalformedResponse — тело ответа 2xx не соответствует ожидаемой форме.
var ErrMalformedResponse = errors.New("malformed response")

// Client безопасен для конкурентного использования.
type Client struct {
	exec    *httpclient.Executor
	baseURL string
}

// New создаёт клиент поверх исполнителя аккаунта.
func New(exec *httpclient.Executor, baseURL string) *Client {
	return &Client{
		exec:    exec,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type meResponse struct {
	Data *struct {
		Email string `json:"email"`
		Stats *struct {
			ValidCount   number `json:"stork_signed_prices_valid_count"`
			InvalidCount number `json:"stork_signed_prices_invalid_count"`
		} `json:"stats"`
	} `json:"data"`
}

// FetchUserStats — GET {baseURL}/me.
func (c *Client) FetchUserStats(ctx context.Context, auth httpclient.Authenticator) (*models.UserStats, error) {
	const op = "stork.FetchUserStats"

	resp, err := c.exec.Do(ctx, httpclient.Request{
		Method:   http.MethodGet,
		URL:      c.baseURL + "/me",
		Endpoint: "me",
	}, auth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var body meResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrMalformedResponse)
	}
	if body.Data == nil || body.Data.Stats == nil {
		return nil, fmt.Errorf("%s: missing data.stats: %w", op, ErrMalformedResponse)
	}

	return &models.UserStats{
		Email:        body.Data.Email,
		ValidCount:   body.Data.Stats.ValidCount.Int64(),
		InvalidCount: body.Data.Stats.InvalidCount.Int64(),
	}, nil
}

type signedPrice struct {
	Price                number `json:"price"`
	TimestampedSignature *struct {
		MsgHash   string `json:"msg_hash"`
		Timestamp number `json:"timestamp"`
	} `json:"timestamped_signature"`
}

type pricesResponse struct {
	Data map[string]json.RawMessage `json:"data"`
}

// FetchSignedPrices — GET {baseURL}/stork_signed_prices.
// Пустой data — пустой результат без ошибки. Записи без msg_hash или метки
// времени, а также неразбираемые записи пропускаются. Результат отсортирован по активу.
func (c *Client) FetchSignedPrices(ctx context.Context, auth httpclient.Authenticator) ([]models.ValidationRecord, error) {
	const op = "stork.FetchSignedPrices"

	resp, err := c.exec.Do(ctx, httpclient.Request{
		Method:   http.MethodGet,
		URL:      c.baseURL + "/stork_signed_prices",
		Endpoint: "stork_signed_prices",
	}, auth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var body pricesResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrMalformedResponse)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%s: missing data: %w", op, ErrMalformedResponse)
	}

	records := make([]models.ValidationRecord, 0, len(body.Data))
	for asset, raw := range body.Data {
		var p signedPrice
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}

		sig := p.TimestampedSignature
		if sig == nil || sig.MsgHash == "" || !sig.Timestamp.valid {
			continue
		}

		records = append(records, models.ValidationRecord{
			Asset:     asset,
			Price:     p.Price.Float64(),
			MsgHash:   sig.MsgHash,
			Timestamp: time.Unix(0, sig.Timestamp.Int64()).UTC(),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Asset < records[j].Asset })

	return records, nil
}

// SubmitValidation — POST {baseURL}/stork_signed_prices/validations.
// Повторы только по общей политике исполнителя.
func (c *Client) SubmitValidation(ctx context.Context, auth httpclient.Authenticator, v models.Validation) error {
	const op = "stork.SubmitValidation"

	_, err := c.exec.Do(ctx, httpclient.Request{
		Method:   http.MethodPost,
		URL:      c.baseURL + "/stork_signed_prices/validations",
		Endpoint: "validations",
		Body:     v,
	}, auth)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
