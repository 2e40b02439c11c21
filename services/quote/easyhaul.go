package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sjsage522/lotwatcher/helpers"
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/errors"
	"sjsage522/lotwatcher/pkg/retry"
	"sjsage522/lotwatcher/services/cache"
)

// Auction identifies the auction house in EasyHaul requests
type Auction int

const (
	AuctionCopart Auction = 1
	AuctionIAAI   Auction = 2
)

const (
	DefaultBaseURL = "https://www.easyhaul.com/data/v1"
	DefaultToken   = "EHULCO"

	// DeliveryFee is added on top of the EasyHaul total
	DeliveryFee = 250

	requestTimeout = 15 * time.Second
	maxAttempts    = 4
	initialWait    = 5 * time.Second
	maxWait        = 60 * time.Second
	cacheTTL       = 6 * time.Hour
)

// Quoter estimates the delivery cost of a lot
type Quoter interface {
	Quote(ctx context.Context, lotNumber string, auction Auction) (float64, bool)
}

// Client is the EasyHaul quote client. A quote is best-effort: every failure
// yields (0, false).
type Client struct {
	baseURL  string
	token    string
	client   *http.Client
	cacheSvc cache.CacheService
	sleep    retry.SleepFunc
	log      *logger.Logger
}

// NewClient creates a client. cacheSvc may be nil.
func NewClient(baseURL, token string, cacheSvc cache.CacheService) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if token == "" {
		token = DefaultToken
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		client:   &http.Client{Timeout: requestTimeout},
		cacheSvc: cacheSvc,
		sleep:    retry.Sleep,
		log:      logger.ForQuote(),
	}
}

type stockResponse struct {
	Vehicles []struct {
		Auction  flexString `json:"auction"`
		Location struct {
			Zip flexString `json:"zip"`
		} `json:"location"`
	} `json:"vehicles"`
}

// flexString accepts both JSON strings and numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type quoteResponse struct {
	Quote *struct {
		Total *float64 `json:"total"`
	} `json:"quote"`
}

// Quote returns quote.total plus DeliveryFee
func (c *Client) Quote(ctx context.Context, lotNumber string, auction Auction) (float64, bool) {
	lot := strings.TrimSpace(lotNumber)
	if lot == "" {
		return 0, false
	}
	log := c.log.WithFields(logger.Fields{"lot_number": lot, "auction": int(auction)})

	cacheKey := fmt.Sprintf("quote:%d:%s", auction, lot)
	if c.cacheSvc != nil {
		if data, err := c.cacheSvc.Get(cacheKey); err == nil {
			if v, perr := strconv.ParseFloat(string(data), 64); perr == nil {
				return v, true
			}
		}
	}

	zip, err := c.originZip(ctx, lot, auction)
	if err != nil {
		log.Debug().Err(err).Msg("No origin zip for lot")
		return 0, false
	}

	total, err := c.quoteTotal(ctx, lot, auction, zip)
	if err != nil {
		log.Debug().Err(err).Str("origin_zip", zip).Msg("Quote unavailable")
		return 0, false
	}

	result := total + DeliveryFee
	if c.cacheSvc != nil {
		_ = c.cacheSvc.Set(cacheKey, []byte(strconv.FormatFloat(result, 'f', -1, 64)), cacheTTL)
	}
	log.Debug().Float64("total", result).Msg("Quote fetched")
	return result, true
}

func (c *Client) originZip(ctx context.Context, lot string, auction Auction) (string, error) {
	endpoint := fmt.Sprintf("%s/vehicle-vin-stock/%s/all", c.baseURL, url.PathEscape(lot))
	data, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var stock stockResponse
	if err := json.Unmarshal(data, &stock); err != nil {
		return "", errors.NewParsing("easyhaul", "invalid stock response", err)
	}
	for _, v := range stock.Vehicles {
		n, err := strconv.Atoi(string(v.Auction))
		if err != nil || Auction(n) != auction {
			continue
		}
		if zip := string(v.Location.Zip); zip != "" {
			return zip, nil
		}
		break
	}
	return "", errors.NewParsing("easyhaul", "no vehicle for auction", nil)
}

func (c *Client) quoteTotal(ctx context.Context, lot string, auction Auction, zip string) (float64, error) {
	q := url.Values{}
	q.Set("type", "I")
	q.Set("origin_zip", zip)
	q.Set("drivable", "true")
	q.Set("auction", strconv.Itoa(int(auction)))
	q.Set("lot_number", lot)
	q.Set("destination_country", "123")
	q.Set("token", c.token)

	data, err := c.get(ctx, c.baseURL+"/quote?"+q.Encode())
	if err != nil {
		return 0, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, errors.NewParsing("easyhaul", "invalid quote response", err)
	}
	if resp.Quote == nil || resp.Quote.Total == nil {
		return 0, errors.NewParsing("easyhaul", "quote has no total", nil)
	}
	return *resp.Quote.Total, nil
}

// get retries rate limits and transient failures with exponential backoff
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return retry.Do(ctx, retry.Opts{
		MaxAttempts: maxAttempts,
		InitialWait: initialWait,
		MaxWait:     maxWait,
		Retryable: func(err error) bool {
			return errors.IsType(err, errors.ErrorTypeRateLimit) || errors.IsTransient(err)
		},
		Sleep: c.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("EasyHaul request failed, retrying")
		},
	}, func(ctx context.Context) ([]byte, error) {
		return helpers.FetchSimply(ctx, c.client, "easyhaul", endpoint)
	})
}
