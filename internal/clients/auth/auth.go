// auth выполняет обмен refresh-токена на новую пару.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pribylovaa/go-stork-validator/internal/clients/httpclient"
	"github.com/pribylovaa/go-stork-validator/internal/models"
)

// ErrAuthFailure — обмен отклонён, недоступен или ответ без access-токена.
// Терминально для текущего тика аккаунта.
var ErrAuthFailure = errors.New("auth failure")

// Client вызывает {authURL}/refresh. Запрос выполняется ровно один раз.
type Client struct {
	exec    *httpclient.Executor
	authURL string
}

// New создаёт клиент. exec должен быть создан с Policy{MaxAttempts: 1}.
func New(exec *httpclient.Executor, authURL string) *Client {
	return &Client{
		exec:    exec,
		authURL: strings.TrimRight(authURL, "/"),
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse принимает snake_case и camelCase варианты полей.
type refreshResponse struct {
	AccessToken       string `json:"access_token"`
	IDToken           string `json:"id_token"`
	RefreshToken      string `json:"refresh_token"`
	AccessTokenCamel  string `json:"accessToken"`
	IDTokenCamel      string `json:"idToken"`
	RefreshTokenCamel string `json:"refreshToken"`
}

// Refresh обменивает refreshToken на новую пару. Если сервер не вернул
// новый refresh-токен, в пару переносится прежний.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	if refreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: empty refresh token: %w", op, ErrAuthFailure)
	}

	resp, err := c.exec.Do(ctx, httpclient.Request{
		Method:   http.MethodPost,
		URL:      c.authURL + "/refresh",
		Endpoint: "auth_refresh",
		Body:     refreshRequest{RefreshToken: refreshToken},
	}, nil)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrAuthFailure, err)
	}

	var body refreshResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: malformed body: %v: %w", op, err, ErrAuthFailure)
	}

	pair := models.TokenPair{
		AccessToken:  firstNonEmpty(body.AccessToken, body.AccessTokenCamel),
		IDToken:      firstNonEmpty(body.IDToken, body.IDTokenCamel),
		RefreshToken: firstNonEmpty(body.RefreshToken, body.RefreshTokenCamel, refreshToken),
	}
	if pair.AccessToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: response has no access token: %w", op, ErrAuthFailure)
	}

	return pair, nil
}

// AccessTokenExpired сообщает, что access-токен в формате JWT истёк
// или истечёт в пределах skew. Подпись не проверяется: нужен только exp.
// Для не-JWT токенов и JWT без exp возвращает false.
func AccessTokenExpired(token string, now time.Time, skew time.Duration) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !now.Add(skew).Before(exp.Time)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
