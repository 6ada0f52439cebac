package port

// SessionLifecycleHandler - минимальный контракт источника событий сессий.
// Транспорт (WebSocket hub, gRPC stream и т.п.) вызывает
// OnOpened при старте клиентской сессии и OnClosed при ее завершении.
// Повторная доставка событий допустима: обработчик идемпотентен.
type SessionLifecycleHandler interface {
	OnOpened(sessionID string)
	OnClosed(sessionID string)
}
