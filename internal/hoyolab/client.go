package hoyolab

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
)

const (
	signBaseURL = "https://sg-hk4e-api.hoyolab.com"
	signActID   = "e202102251931481"

	// Overseas web salt used for the DS header on game-record endpoints.
	dsSalt = "6s25p5ox5y14umn1p61aqyyvbvvl3lrt"
)

// Notes is the subset of the real-time notes payload the bot uses.
type Notes struct {
	CurrentResin     int `json:"current_resin"`
	MaxResin         int `json:"max_resin"`
	CurrentHomeCoin  int `json:"current_home_coin"`
	MaxHomeCoin      int `json:"max_home_coin"`
	ResinRecoverySec int `json:"resin_recovery_time,string"`
	Transformer      struct {
		Obtained     bool `json:"obtained"`
		RecoveryTime struct {
			Reached bool `json:"reached"`
		} `json:"recovery_time"`
	} `json:"transformer"`
}

// TransformerReady reports whether the parametric transformer is off cooldown.
func (n Notes) TransformerReady() bool {
	return n.Transformer.Obtained && n.Transformer.RecoveryTime.Reached
}

// ClaimResult is the outcome of a daily reward claim attempt.
type ClaimResult struct {
	AlreadyClaimed bool
}

type Client struct {
	baseURL string
	signURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signURL: signBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchNotes pulls the real-time notes (resin, pot currency, transformer)
// for the given uid using the account's cookie.
func (c *Client) FetchNotes(ctx context.Context, uid int64, cookie accounts.Cookie) (Notes, error) {
	server, err := ServerFromUID(uid)
	if err != nil {
		return Notes{}, err
	}

	q := url.Values{}
	q.Set("role_id", fmt.Sprint(uid))
	q.Set("server", server)
	endpoint := c.baseURL + "/game_record/genshin/api/dailyNote?" + q.Encode()

	var notes Notes
	if err := c.call(ctx, http.MethodGet, endpoint, cookie, true, nil, &notes); err != nil {
		return Notes{}, err
	}
	return notes, nil
}

// ClaimDailyReward attempts the Hoyolab daily check-in. Already-claimed is
// reported in the result, not as an error.
func (c *Client) ClaimDailyReward(ctx context.Context, uid int64, cookie accounts.Cookie) (ClaimResult, error) {
	if _, err := ServerFromUID(uid); err != nil {
		return ClaimResult{}, err
	}
	endpoint := c.signURL + "/event/sol/sign?act_id=" + signActID

	err := c.call(ctx, http.MethodPost, endpoint, cookie, false, map[string]string{"act_id": signActID}, nil)
	if IsAlreadyClaimed(err) {
		return ClaimResult{AlreadyClaimed: true}, nil
	}
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{}, nil
}

type envelope struct {
	Retcode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, method, endpoint string, cookie accounts.Cookie, signed bool, body map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(b))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", fmt.Sprintf("ltuid=%d; ltoken=%s", cookie.LtUID, cookie.LtToken))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		req.Header.Set("DS", generateDS())
		req.Header.Set("x-rpc-client_type", "5")
		req.Header.Set("x-rpc-app_version", "1.5.0")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hoyolab: %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hoyolab: %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("hoyolab: decode: %w", err)
	}
	if err := retcodeError(env.Retcode, env.Message); err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("hoyolab: decode data: %w", err)
		}
	}
	return nil
}

// generateDS builds the DS signature header expected by game-record endpoints.
func generateDS() string {
	t := time.Now().Unix()
	r := 100000 + rand.Intn(100000)
	h := md5.Sum(fmt.Appendf(nil, "salt=%s&t=%d&r=%d", dsSalt, t, r))
	return fmt.Sprintf("%d,%d,%x", t, r, h)
}

// ServerFromUID maps an overseas uid to its region code. Mainland uids
// (1/2/5 prefixes) are not supported, matching the bot's account rules.
func ServerFromUID(uid int64) (string, error) {
	s := fmt.Sprint(uid)
	if len(s) != 9 {
		return "", fmt.Errorf("hoyolab: uid %d: must be 9 digits", uid)
	}
	switch s[0] {
	case '6':
		return "os_usa", nil
	case '7':
		return "os_euro", nil
	case '8':
		return "os_asia", nil
	case '9':
		return "os_cht", nil
	default:
		return "", fmt.Errorf("hoyolab: uid %d: unsupported server", uid)
	}
}
