package notifier

import (
	"context"
	"strings"

	"sjsage522/lotwatcher/logger"
)

// Deliver sends caption with the lot photo when there is one, and falls
// back to a text message when the photo send fails for any reason.
func Deliver(ctx context.Context, n Notifier, imageURL, caption string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return n.SendText(ctx, caption)
	}

	err := n.SendPhoto(ctx, imageURL, caption)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	logger.ForNotifier().Warn().
		Err(err).
		Str("image_url", imageURL).
		Msg("Photo send failed, falling back to text")
	return n.SendText(ctx, caption)
}
