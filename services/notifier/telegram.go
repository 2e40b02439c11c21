package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/errors"
	"sjsage522/lotwatcher/pkg/retry"
)

const (
	defaultMaxRetries  = 5
	defaultRetryAfter  = 30 * time.Second
	minRateLimitWait   = 5 * time.Second
	rateLimitBuffer    = 2 * time.Second
	cooldownMargin     = 30 * time.Second
	networkInitialWait = 2 * time.Second
	networkMaxWait     = 60 * time.Second
	requestTimeout     = 30 * time.Second
)

var retryAfterText = regexp.MustCompile(`(?i)retry after (\d+)`)

// photo rejections caused by the image itself rather than the message
var imageErrorMarkers = []string{
	"failed to get http url content",
	"wrong type of the web page content",
	"wrong file identifier/http url specified",
	"image_process_failed",
	"photo_invalid_dimensions",
	"photo_save_file_invalid",
}

// Notifier delivers HTML formatted messages
type Notifier interface {
	SendText(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, photoURL, caption string) error
}

// Options configures a Telegram notifier
type Options struct {
	APIURL   string
	BotToken string
	ChatID   string
	ThreadID int64
	Cooldown *Cooldown
	Client   *http.Client
}

// Telegram sends messages through the Bot API
type Telegram struct {
	apiURL   string
	token    string
	chatID   string
	threadID int64
	client   *http.Client
	cooldown *Cooldown

	maxRetries int
	now        func() time.Time
	sleep      retry.SleepFunc
	log        *logger.Logger
}

// NewTelegram creates a notifier. Instances that post into the same chat
// should share opts.Cooldown.
func NewTelegram(opts Options) *Telegram {
	cooldown := opts.Cooldown
	if cooldown == nil {
		cooldown = NewCooldown()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}

	log := logger.ForNotifier().WithField("chat_id", opts.ChatID)
	if opts.ThreadID != 0 {
		log = log.WithField("thread_id", opts.ThreadID)
	}

	return &Telegram{
		apiURL:     apiURL,
		token:      opts.BotToken,
		chatID:     opts.ChatID,
		threadID:   opts.ThreadID,
		client:     client,
		cooldown:   cooldown,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		sleep:      retry.Sleep,
		log:        log,
	}
}

// SendText implements Notifier
func (t *Telegram) SendText(ctx context.Context, text string) error {
	return t.send(ctx, "sendMessage", map[string]interface{}{
		"text":                     text,
		"disable_web_page_preview": false,
	})
}

// SendPhoto implements Notifier
func (t *Telegram) SendPhoto(ctx context.Context, photoURL, caption string) error {
	return t.send(ctx, "sendPhoto", map[string]interface{}{
		"photo":   photoURL,
		"caption": caption,
	})
}

func (t *Telegram) send(ctx context.Context, method string, payload map[string]interface{}) error {
	payload["chat_id"] = t.chatID
	payload["parse_mode"] = "HTML"
	if t.threadID != 0 {
		payload["message_thread_id"] = t.threadID
	}

	if remaining := t.cooldown.Remaining(); remaining > 0 {
		t.log.Info().Dur("wait", remaining).Msg("Waiting out rate limit cooldown")
	}
	if err := t.cooldown.Wait(ctx); err != nil {
		return err
	}

	_, err := retry.Do(ctx, retry.Opts{
		MaxAttempts: t.maxRetries + 1,
		InitialWait: networkInitialWait,
		MaxWait:     networkMaxWait,
		Retryable: func(err error) bool {
			return errors.IsType(err, errors.ErrorTypeRateLimit) || errors.IsTransient(err)
		},
		Wait: func(_ int, err error) (time.Duration, bool) {
			ra, ok := errors.RetryAfter(err)
			if !ok {
				return 0, false
			}
			return rateLimitWait(ra), true
		},
		Sleep: t.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			t.log.Warn().
				Err(err).
				Str("method", method).
				Int("attempt", attempt).
				Int("max_retries", t.maxRetries).
				Dur("wait", wait).
				Msg("Send failed, retrying")
		},
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.post(ctx, method, payload)
	})
	if err != nil {
		t.log.Error().Err(err).Str("method", method).Msg("Send failed")
	}
	return err
}

// rateLimitWait adds the safety buffer to the server hint
func rateLimitWait(retryAfter time.Duration) time.Duration {
	if retryAfter <= 0 {
		retryAfter = defaultRetryAfter
	}
	wait := retryAfter + rateLimitBuffer
	if wait < minRateLimitWait {
		wait = minRateLimitWait
	}
	return wait
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (t *Telegram) post(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewParsing("telegram", "failed to encode "+method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", t.apiURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.NewConfiguration("failed to build "+method+" request", redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.NewNetwork("telegram", method+" request failed", redact(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetwork("telegram", "failed to read "+method+" response", err)
	}

	var r apiResponse
	_ = json.Unmarshal(data, &r)
	if resp.StatusCode == http.StatusOK && r.OK {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests || r.ErrorCode == http.StatusTooManyRequests {
		ra := time.Duration(r.Parameters.RetryAfter) * time.Second
		if ra <= 0 {
			if m := retryAfterText.FindStringSubmatch(r.Description); m != nil {
				secs, _ := strconv.Atoi(m[1])
				ra = time.Duration(secs) * time.Second
			}
		}
		wait := rateLimitWait(ra)
		t.cooldown.Extend(t.now().Add(wait + cooldownMargin))
		rl := errors.NewRateLimit("telegram", ra)
		rl.Message = fmt.Sprintf("%s: %s", method, r.Description)
		return rl
	}

	if resp.StatusCode >= 500 {
		e := errors.NewHTTPStatus("telegram", resp.StatusCode)
		e.Message = fmt.Sprintf("%s: %s", method, r.Description)
		return e
	}

	if method == "sendPhoto" && isImageError(r.Description) {
		e := errors.NewImage("telegram", r.Description, nil)
		e.StatusCode = resp.StatusCode
		return e
	}

	e := errors.NewDelivery("telegram", fmt.Sprintf("%s rejected (%d): %s", method, resp.StatusCode, r.Description), nil)
	e.StatusCode = resp.StatusCode
	return e
}

func isImageError(description string) bool {
	d := strings.ToLower(description)
	for _, marker := range imageErrorMarkers {
		if strings.Contains(d, marker) {
			return true
		}
	}
	return false
}

// redact drops the request URL, which carries the bot token, from transport errors
func redact(err error) error {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
