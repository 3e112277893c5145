package models

// TokenPair — пара учётных данных клиента (Credential Pair).
//
// Описание:
//   - Access — короткоживущий токен, предъявляется в каждом запросе;
//   - Refresh — долгоживущий токен, предъявляется только эндпойнту обновления.
//
// Форма токенов локально не проверяется: сервер — единственный источник истины.
type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Empty — ни одного токена нет.
func (p TokenPair) Empty() bool { return p.Access == "" && p.Refresh == "" }
