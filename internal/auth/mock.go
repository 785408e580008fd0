package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/zhouzirui/riji/backend/internal/model/user"
)

// MockProvider 用于本地开发，不访问微信接口。
type MockProvider struct {
	now func() time.Time
}

// NewMockProvider creates a MockProvider using the wall clock.
func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

// Name implements Provider.
func (p *MockProvider) Name() string { return ProviderMock }

// Login returns a fresh mock_openid_<unix-millis> identity.
func (p *MockProvider) Login(context.Context, string) (Identity, error) {
	return Identity{OpenID: fmt.Sprintf("mock_openid_%d", p.now().UnixMilli())}, nil
}

// PhoneNumber always returns the same masked test number.
func (p *MockProvider) PhoneNumber(context.Context, string) (user.PhoneInfo, error) {
	return user.PhoneInfo{
		PhoneNumber:     "138****1234",
		PurePhoneNumber: "13800123456",
		CountryCode:     "86",
	}, nil
}
