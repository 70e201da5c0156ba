package api

import "fmt"

// Error представляет типизированную ошибку бэкенда: HTTP статус плюс
// машинный код ошибки из тела ответа. Классификация ошибок опирается
// на эти поля, а не на текст сообщения.
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d: %s", e.Status, e.Message)
}
