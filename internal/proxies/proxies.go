// proxies читает список прокси из файла и назначает их аккаунтам.
package proxies

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pribylovaa/go-stork-validator/internal/config"
	"github.com/pribylovaa/go-stork-validator/internal/models"
)

// ErrEmpty — в файле нет ни одного адреса.
var ErrEmpty = errors.New("proxy list is empty")

// Load читает файл: один URL на строку, пустые строки и строки с '#' пропускаются.
// Адрес без схемы считается http://host:port.
func Load(path string) ([]*url.URL, error) {
	const op = "proxies.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	var list []*url.URL

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++

		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}

		u, err := config.ParseProxyURL(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %s:%d: %w", op, path, line, err)
		}
		list = append(list, u)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %s: %w", op, path, ErrEmpty)
	}

	return list, nil
}

// Assign назначает прокси по кругу аккаунтам без явного прокси:
// i-й аккаунт получает list[i % len(list)]. Явно заданные прокси не меняются.
// Возвращает новый срез, исходный не модифицируется.
func Assign(accounts []models.Account, list []*url.URL) []models.Account {
	out := make([]models.Account, len(accounts))
	copy(out, accounts)

	if len(list) == 0 {
		return out
	}

	for i := range out {
		if out[i].Proxy == nil {
			out[i].Proxy = list[i%len(list)]
		}
	}

	return out
}
