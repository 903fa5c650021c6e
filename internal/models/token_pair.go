package models

// MinAccessTokenLen — минимальная длина access-токена, при которой пара
// считается пригодной для авторизованных запросов.
const MinAccessTokenLen = 20

// TokenPair — учётные данные одной сессии аккаунта.
//
// Описание:
//   - AccessToken — короткоживущий bearer-токен для API;
//   - RefreshToken — секрет для выпуска новой пары (ротируется сервером);
//   - IDToken — необязательный id-токен, хранится как есть.
//
// Пара не изменяется на месте: при успешном обновлении заменяется целиком.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken"`
}

// Usable сообщает, можно ли использовать AccessToken без предварительного обновления.
func (p TokenPair) Usable() bool {
	return len(p.AccessToken) >= MinAccessTokenLen
}

// CanRefresh сообщает, есть ли у пары refresh-токен для обмена.
func (p TokenPair) CanRefresh() bool {
	return p.RefreshToken != ""
}
