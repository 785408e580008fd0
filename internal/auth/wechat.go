package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/zhouzirui/riji/backend/internal/model/user"
)

// accessTokenLeeway 提前刷新 access_token 的时间。
const accessTokenLeeway = 5 * time.Minute

// WeChatProvider 调用微信服务端接口完成登录。
type WeChatProvider struct {
	baseURL    string
	appID      string
	secret     string
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewWeChatProvider creates a provider against baseURL (normally https://api.weixin.qq.com).
func NewWeChatProvider(baseURL, appID, secret string, httpClient *http.Client) *WeChatProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WeChatProvider{
		baseURL:    baseURL,
		appID:      appID,
		secret:     secret,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Name implements Provider.
func (p *WeChatProvider) Name() string { return ProviderWeChat }

type wechatStatus struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (s wechatStatus) err() error {
	if s.ErrCode == 0 {
		return nil
	}
	return &WeChatError{Code: s.ErrCode, Message: s.ErrMsg}
}

// Login 调用 jscode2session 换取 openid。
func (p *WeChatProvider) Login(ctx context.Context, code string) (Identity, error) {
	query := url.Values{
		"appid":      {p.appID},
		"secret":     {p.secret},
		"js_code":    {code},
		"grant_type": {"authorization_code"},
	}

	var resp struct {
		wechatStatus
		OpenID     string `json:"openid"`
		UnionID    string `json:"unionid"`
		SessionKey string `json:"session_key"`
	}
	if err := p.do(ctx, http.MethodGet, "/sns/jscode2session", query, nil, &resp); err != nil {
		return Identity{}, fmt.Errorf("jscode2session: %w", err)
	}
	if err := resp.err(); err != nil {
		return Identity{}, err
	}
	if resp.OpenID == "" {
		return Identity{}, fmt.Errorf("jscode2session: empty openid")
	}
	return Identity{OpenID: resp.OpenID, UnionID: resp.UnionID, SessionKey: resp.SessionKey}, nil
}

// PhoneNumber 用手机号授权 code 换取手机号。
func (p *WeChatProvider) PhoneNumber(ctx context.Context, code string) (user.PhoneInfo, error) {
	token, err := p.token(ctx)
	if err != nil {
		return user.PhoneInfo{}, err
	}

	var resp struct {
		wechatStatus
		PhoneInfo user.PhoneInfo `json:"phone_info"`
	}
	query := url.Values{"access_token": {token}}
	body := map[string]string{"code": code}
	if err := p.do(ctx, http.MethodPost, "/wxa/business/getuserphonenumber", query, body, &resp); err != nil {
		return user.PhoneInfo{}, fmt.Errorf("getuserphonenumber: %w", err)
	}
	if err := resp.err(); err != nil {
		return user.PhoneInfo{}, err
	}
	return resp.PhoneInfo, nil
}

// token returns the cached client-credential access token, refreshing it when close to expiry.
func (p *WeChatProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.now().Before(p.expiresAt) {
		return p.accessToken, nil
	}

	query := url.Values{
		"grant_type": {"client_credential"},
		"appid":      {p.appID},
		"secret":     {p.secret},
	}
	var resp struct {
		wechatStatus
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := p.do(ctx, http.MethodGet, "/cgi-bin/token", query, nil, &resp); err != nil {
		return "", fmt.Errorf("access token: %w", err)
	}
	if err := resp.err(); err != nil {
		return "", err
	}

	p.accessToken = resp.AccessToken
	p.expiresAt = p.now().Add(time.Duration(resp.ExpiresIn)*time.Second - accessTokenLeeway)
	return p.accessToken, nil
}

func (p *WeChatProvider) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
