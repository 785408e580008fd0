// Package auth 实现微信小程序登录、手机号绑定与 JWT 会话。
package auth

import (
	"context"
	"fmt"

	"github.com/zhouzirui/riji/backend/internal/model/user"
)

// 登录能力的实现名称，与 AUTH_PROVIDER 取值一致。
const (
	ProviderWeChat = "wechat"
	ProviderMock   = "mock"
)

// Identity 是用登录凭证换回的身份。
type Identity struct {
	OpenID     string `json:"openid"`
	UnionID    string `json:"unionid,omitempty"`
	SessionKey string `json:"-"`
}

// Provider exchanges client codes for identities and phone numbers.
type Provider interface {
	Name() string
	Login(ctx context.Context, code string) (Identity, error)
	PhoneNumber(ctx context.Context, code string) (user.PhoneInfo, error)
}

// WeChatError carries a non-zero errcode from the WeChat API.
type WeChatError struct {
	Code    int
	Message string
}

func (e *WeChatError) Error() string {
	return fmt.Sprintf("wechat api error %d: %s", e.Code, e.Message)
}
