package models

import "net/url"

// Account — статическая конфигурация одного аккаунта.
// Proxy фиксируется на время жизни процесса (nil — прямое соединение).
type Account struct {
	ID        string
	Proxy     *url.URL
	TokenFile string
}
