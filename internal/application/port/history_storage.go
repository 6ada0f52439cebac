package port

import "context"

// HistoryStorage хранит выгрузки истории снимков (S3).
type HistoryStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}
