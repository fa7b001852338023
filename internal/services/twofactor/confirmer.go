// Package twofactor drives Steam's mobile confirmation service: fetching
// the account's outstanding confirmations, answering them in batch, and
// generating Steam Guard time-based codes from the account's secrets.
package twofactor

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tradeengine/internal/tradeengine"

	"github.com/go-resty/resty/v2"
)

// Confirmer drives the mobile-authenticator confirmation flow for a single
// bot account's trade offers and market listings.
type Confirmer struct {
	SteamID64      uint64
	IdentitySecret string
	DeviceID       string

	client *resty.Client
	// communityBaseURL defaults to Steam's real community host; tests point
	// it at an httptest.Server instead.
	communityBaseURL string
}

func NewConfirmer(steamID64 uint64, identitySecret, deviceID string) *Confirmer {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	return &Confirmer{
		SteamID64:        steamID64,
		IdentitySecret:   identitySecret,
		DeviceID:         deviceID,
		client:           client,
		communityBaseURL: "https://steamcommunity.com",
	}
}

type confirmationDTO struct {
	ID       string `json:"id"`
	Nonce    string `json:"nonce"`
	Creator  string `json:"creator_id"`
	TypeName string `json:"type_name"`
}

// HandleTwoFactorAuthenticationConfirmations implements
// tradeengine.TwoFactorConfirmer. It fetches the account's outstanding
// mobile confirmations, matches them against ids by their creator id (the
// trade offer id or market listing id the confirmation was created for),
// and accepts or declines each match.
func (c *Confirmer) HandleTwoFactorAuthenticationConfirmations(ctx context.Context, accept bool, kind tradeengine.ConfirmationKind, ids []uint64, waitIfNecessary bool) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[strconv.FormatUint(id, 10)] = struct{}{}
	}

	pending, err := c.fetchConfirmations(ctx)
	if err != nil {
		if waitIfNecessary {
			time.Sleep(2 * time.Second)
			pending, err = c.fetchConfirmations(ctx)
		}
		if err != nil {
			return false, fmt.Errorf("twofactor: fetch confirmations: %w", err)
		}
	}

	matched := 0
	for _, conf := range pending {
		if _, ok := wanted[conf.Creator]; !ok {
			continue
		}
		if err := c.answer(ctx, conf, accept); err != nil {
			return false, fmt.Errorf("twofactor: answer confirmation for creator %s: %w", conf.Creator, err)
		}
		matched++
	}
	return matched == len(wanted), nil
}

func (c *Confirmer) fetchConfirmations(ctx context.Context) ([]confirmationDTO, error) {
	ts := time.Now().Unix()
	hash, err := c.confirmationHash(ts, "conf")
	if err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"p":   c.DeviceID,
			"a":   strconv.FormatUint(c.SteamID64, 10),
			"k":   hash,
			"t":   strconv.FormatInt(ts, 10),
			"m":   "react",
			"tag": "conf",
		}).
		Get(c.communityBaseURL + "/mobileconf/getlist")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Success bool              `json:"success"`
		Conf    []confirmationDTO `json:"conf"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("decode confirmation list: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("confirmation list request rejected")
	}
	return parsed.Conf, nil
}

func (c *Confirmer) answer(ctx context.Context, conf confirmationDTO, accept bool) error {
	ts := time.Now().Unix()
	op := "cancel"
	if accept {
		op = "allow"
	}
	hash, err := c.confirmationHash(ts, op)
	if err != nil {
		return err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"p":  c.DeviceID,
			"a":  strconv.FormatUint(c.SteamID64, 10),
			"k":  hash,
			"t":  strconv.FormatInt(ts, 10),
			"m":  "react",
			"tag": op,
			"op": op,
			"cid": conf.ID,
			"ck":  conf.Nonce,
		}).
		Get(c.communityBaseURL + "/mobileconf/ajaxop")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status())
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return fmt.Errorf("decode ajaxop response: %w", err)
	}
	if !parsed.Success {
		return fmt.Errorf("ajaxop rejected")
	}
	return nil
}

// confirmationHash produces the base64 HMAC-SHA1 tag Steam's mobile
// confirmation endpoints require, keyed by the account's identity secret
// over the big-endian timestamp followed by the operation tag.
func (c *Confirmer) confirmationHash(timestamp int64, tag string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.IdentitySecret)
	if err != nil {
		return "", fmt.Errorf("decode identity secret: %w", err)
	}
	var buf bytes.Buffer
	var b [8]byte
	t := uint64(timestamp)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(t & 0xFF)
		t >>= 8
	}
	buf.Write(b[:])
	buf.WriteString(tag)
	return base64.StdEncoding.EncodeToString(hmacSha1(secret, buf.Bytes())), nil
}

// hmacSha1 is a minimal HMAC-SHA1 implementation, identical in shape to the
// one the Steam Guard TOTP generator uses.
func hmacSha1(key, data []byte) []byte {
	const blocksize = 64
	if len(key) > blocksize {
		h := sha1.Sum(key)
		key = h[:]
	}
	if len(key) < blocksize {
		key = append(key, bytes.Repeat([]byte{0}, blocksize-len(key))...)
	}
	okey := make([]byte, blocksize)
	ikey := make([]byte, blocksize)
	for i := 0; i < blocksize; i++ {
		okey[i] = key[i] ^ 0x5c
		ikey[i] = key[i] ^ 0x36
	}
	inner := sha1.New()
	inner.Write(ikey)
	inner.Write(data)
	innerSum := inner.Sum(nil)
	outer := sha1.New()
	outer.Write(okey)
	outer.Write(innerSum)
	return outer.Sum(nil)
}

// GenerateSteamGuardCode produces the current 5-character login code for a
// shared secret. It is exported on its own; neither the Confirmer nor
// cmd/tradeengine-bot calls it.
func GenerateSteamGuardCode(sharedSecret string, t time.Time) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", err
	}
	timeStep := uint64(t.Unix() / 30)
	var b [8]byte
	for i := uint(0); i < 8; i++ {
		b[7-i] = byte(timeStep & 0xFF)
		timeStep >>= 8
	}
	h := hmacSha1(secret, b[:])
	offset := h[len(h)-1] & 0x0F
	code := (uint32(h[offset])&0x7F)<<24 | (uint32(h[offset+1])&0xFF)<<16 | (uint32(h[offset+2])&0xFF)<<8 | (uint32(h[offset+3]) & 0xFF)
	chars := []rune("23456789BCDFGHJKMNPQRTVWXY")
	var out []rune
	for i := 0; i < 5; i++ {
		out = append(out, chars[code%uint32(len(chars))])
		code /= uint32(len(chars))
	}
	return string(out), nil
}
