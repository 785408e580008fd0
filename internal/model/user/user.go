package user

import "time"

// User 是通过微信登录的用户资料。
type User struct {
	OpenID          string    `json:"openId"`
	UnionID         string    `json:"unionId,omitempty"`
	NickName        string    `json:"nickName"`
	AvatarURL       string    `json:"avatarUrl"`
	Gender          int       `json:"gender"`
	City            string    `json:"city"`
	Province        string    `json:"province"`
	Country         string    `json:"country"`
	Language        string    `json:"language"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	PurePhoneNumber string    `json:"purePhoneNumber,omitempty"`
	CountryCode     string    `json:"countryCode,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Profile 是客户端在登录时可选上报的资料。
type Profile struct {
	NickName  string `json:"nickName" validate:"omitempty,max=64"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
	Gender    int    `json:"gender" validate:"gte=0,lte=2"`
	City      string `json:"city" validate:"omitempty,max=64"`
	Province  string `json:"province" validate:"omitempty,max=64"`
	Country   string `json:"country" validate:"omitempty,max=64"`
	Language  string `json:"language" validate:"omitempty,max=16"`
}

// DefaultProfile is used when a client logs in without sharing a profile.
func DefaultProfile() Profile {
	return Profile{
		NickName: "微信用户",
		City:     "北京市",
		Province: "北京市",
		Country:  "中国",
		Language: "zh_CN",
	}
}

// PhoneInfo 是解密后的手机号信息。
type PhoneInfo struct {
	PhoneNumber     string `json:"phoneNumber"`
	PurePhoneNumber string `json:"purePhoneNumber"`
	CountryCode     string `json:"countryCode"`
}

// ApplyProfile copies non-empty profile fields onto u.
func (u *User) ApplyProfile(p Profile) {
	if p.NickName != "" {
		u.NickName = p.NickName
	}
	if p.AvatarURL != "" {
		u.AvatarURL = p.AvatarURL
	}
	if p.Gender != 0 {
		u.Gender = p.Gender
	}
	if p.City != "" {
		u.City = p.City
	}
	if p.Province != "" {
		u.Province = p.Province
	}
	if p.Country != "" {
		u.Country = p.Country
	}
	if p.Language != "" {
		u.Language = p.Language
	}
}

// ApplyPhone records a bound phone number.
func (u *User) ApplyPhone(p PhoneInfo) {
	u.PhoneNumber = p.PhoneNumber
	u.PurePhoneNumber = p.PurePhoneNumber
	u.CountryCode = p.CountryCode
}
