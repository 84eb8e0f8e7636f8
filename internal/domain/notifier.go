package domain

import "context"

//go:generate mockgen -source=notifier.go -destination=notifier_mock.go -package=domain

type SendOptions struct {
	SubThreadID *int64
}

type SendResult struct {
	MessageID int64
}

type Notifier interface {
	Send(ctx context.Context, chatID, text string, opts SendOptions) (*SendResult, error)
}
