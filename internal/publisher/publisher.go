// Package publisher delivers prepared media to the configured channel and
// notifies operators about anomalies.
package publisher

import "context"

// Interface publishes prepared media and operator notifications. The
// scheduler and the admin API only depend on this interface.
type Interface interface {
	// Publish sends the media file at localPath to the channel.
	Publish(ctx context.Context, localPath, caption string, isVideo bool) error
	// Notify sends an operator message to every configured admin.
	Notify(ctx context.Context, text string) error
}
