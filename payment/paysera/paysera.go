// Package paysera implements the Paysera checkout redirect and callback
// signature scheme.
package paysera

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/arunvm123/villabooking/config"
	"github.com/arunvm123/villabooking/model"
	"github.com/arunvm123/villabooking/payment"
)

const paymentMethods = "NB,CB,VW,EP,MP"

type Client struct {
	projectID    string
	signPassword string
	baseURL      string
	payURL       string
	currency     string
	testMode     bool
}

func NewClient(cfg *config.Payment) *Client {
	return &Client{
		projectID:    cfg.ProjectID,
		signPassword: cfg.SignPassword,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		payURL:       cfg.PayURL,
		currency:     cfg.Currency,
		testMode:     cfg.TestMode,
	}
}

// Params returns the request parameters for a booking, without the signature.
func (c *Client) Params(booking *model.Booking) map[string]string {
	firstName, lastName := splitName(booking.CustomerName)

	test := "0"
	if c.testMode {
		test = "1"
	}

	return map[string]string{
		"projectid":   c.projectID,
		"orderid":     booking.PaymentOrderID,
		"accepturl":   fmt.Sprintf("%s/payment/success?bookingId=%s", c.baseURL, booking.ID),
		"cancelurl":   fmt.Sprintf("%s/payment/cancel?bookingId=%s", c.baseURL, booking.ID),
		"callbackurl": fmt.Sprintf("%s/api/payment-callback", c.baseURL),
		"amount":      strconv.FormatInt(toCents(booking.TotalPrice), 10),
		"currency":    c.currency,
		"payment":     paymentMethods,
		"country":     "LT",
		"lang":        "en",
		"test":        test,
		"p_firstname": firstName,
		"p_lastname":  lastName,
		"p_email":     booking.CustomerEmail,
		"p_phone":     booking.CustomerPhone,
	}
}

// Sign computes md5(canonical + password) where canonical is the params
// sorted by key and joined as key=value pairs.
func (c *Client) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+encodeURIComponent(params[k]))
	}

	return md5Hex(strings.Join(pairs, "&") + c.signPassword)
}

func (c *Client) CheckoutURL(ctx context.Context, booking *model.Booking) (string, error) {
	if booking.PaymentOrderID == "" {
		return "", fmt.Errorf("booking %s has no payment order id", booking.ID)
	}

	params := c.Params(booking)
	sign := c.Sign(params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("sign", sign)

	return c.payURL + "?" + values.Encode(), nil
}

// Verify checks ss1 == md5(data + password) in constant time.
func (c *Client) Verify(cb payment.Callback) bool {
	if cb.Data == "" || cb.SS1 == "" {
		return false
	}
	expected := md5Hex(cb.Data + c.signPassword)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(cb.SS1))) == 1
}

// Parse decodes the callback data. Both a plain query string and the
// base64url encoded form Paysera sends are accepted.
func (c *Client) Parse(cb payment.Callback) (payment.Result, error) {
	values, err := decodeData(cb.Data)
	if err != nil {
		return payment.Result{}, err
	}

	orderID := values.Get("orderid")
	if orderID == "" {
		return payment.Result{}, fmt.Errorf("%w: missing orderid", payment.ErrMalformedCallback)
	}

	result := payment.Result{
		OrderID: orderID,
		Test:    values.Get("test") == "1",
	}

	if amount := values.Get("amount"); amount != "" {
		result.Amount, err = strconv.ParseInt(amount, 10, 64)
		if err != nil {
			return payment.Result{}, fmt.Errorf("%w: amount %q", payment.ErrMalformedCallback, amount)
		}
	}

	switch values.Get("status") {
	case "1":
		result.Status = model.PaymentStatusPaid
	case "2", "3":
		// Accepted but not executed yet, Paysera posts again once settled.
		result.Status = model.PaymentStatusPending
	default:
		result.Status = model.PaymentStatusFailed
	}

	return result, nil
}

func decodeData(data string) (url.Values, error) {
	if values, err := url.ParseQuery(data); err == nil && values.Get("orderid") != "" {
		return values, nil
	}

	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimRight(data, "="))
	decoded, err := base64.RawStdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrMalformedCallback, err)
	}

	values, err := url.ParseQuery(string(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrMalformedCallback, err)
	}
	return values, nil
}

func splitName(name string) (string, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(rest)
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// encodeURIComponent escapes like the browser function of the same name,
// which is what the signature canonical form is defined over.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	return strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	).Replace(escaped)
}
