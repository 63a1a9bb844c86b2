package models

import "context"

// ChatModel is implemented by every chat backend adapter. Chat blocks until
// the backend answers; there is never more than one request in flight per
// call.
type ChatModel interface {
	Chat(ctx context.Context, request ChatRequest) (ChatResponse, error)
}
