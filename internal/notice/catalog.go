// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notice

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a catalog message.
type Key string

const (
	KeySessionExpired   Key = "session.expired"
	KeyNoPermission     Key = "request.forbidden"
	KeyNotFound         Key = "request.not_found"
	KeyServerError      Key = "request.server_error"
	KeyTimeout          Key = "request.timeout"
	KeyNetworkError     Key = "request.network"
	KeyRequestFailed    Key = "request.failed"
	KeyUserInfoFailed   Key = "guard.user_info_failed"
	KeyNoPagePermission Key = "guard.no_page_permission"
	KeyIdleLogout       Key = "session.idle_logout"
	KeyIdleWarning      Key = "session.idle_warning"
	KeyLoggedIn         Key = "session.logged_in"
	KeyLoggedOut        Key = "session.logged_out"
	KeyExternalLogout   Key = "session.external_logout"
)

var messages = map[Key]map[string]string{
	KeySessionExpired: {
		"en": "Session expired, please log in again",
		"zh": "登录已过期，请重新登录",
	},
	KeyNoPermission: {
		"en": "You do not have permission to do that",
		"zh": "没有权限访问",
	},
	KeyNotFound: {
		"en": "The requested resource does not exist",
		"zh": "请求的资源不存在",
	},
	KeyServerError: {
		"en": "Server error, please try again later",
		"zh": "服务器错误，请稍后重试",
	},
	KeyTimeout: {
		"en": "Request timed out, please try again later",
		"zh": "请求超时，请稍后重试",
	},
	KeyNetworkError: {
		"en": "Network error, please check your connection",
		"zh": "网络错误，请检查网络连接",
	},
	KeyRequestFailed: {
		"en": "Request failed",
		"zh": "请求失败",
	},
	KeyUserInfoFailed: {
		"en": "Failed to load user information",
		"zh": "获取用户信息失败",
	},
	KeyNoPagePermission: {
		"en": "You do not have permission to view this page",
		"zh": "您没有权限访问此页面",
	},
	KeyIdleLogout: {
		"en": "Logged out after %d minutes of inactivity",
		"zh": "闲置 %d 分钟，已自动退出登录",
	},
	KeyIdleWarning: {
		"en": "Session locks in %s",
		"zh": "%s 后将自动退出登录",
	},
	KeyLoggedIn: {
		"en": "Logged in as %s",
		"zh": "已登录：%s",
	},
	KeyLoggedOut: {
		"en": "Logged out",
		"zh": "已退出登录",
	},
	KeyExternalLogout: {
		"en": "Logged out from another session",
		"zh": "已在其他会话中退出登录",
	},
}

// Languages lists the supported language codes.
var Languages = []string{"en", "zh"}

var tags = map[string]language.Tag{
	"en": language.English,
	"zh": language.SimplifiedChinese,
}

var (
	catalogOnce sync.Once
	builder     *catalog.Builder
)

func buildCatalog() *catalog.Builder {
	catalogOnce.Do(func() {
		builder = catalog.NewBuilder(catalog.Fallback(language.English))
		for key, byLang := range messages {
			for lang, text := range byLang {
				// The catalog cannot fail for plain strings.
				_ = builder.SetString(tags[lang], string(key), text)
			}
		}
	})
	return builder
}

// Localizer renders catalog keys in one language.
type Localizer struct {
	lang    string
	printer *message.Printer
}

// NewLocalizer returns a localizer for lang ("en" or "zh"). Region suffixes
// like "zh-CN" are accepted.
func NewLocalizer(lang string) (*Localizer, error) {
	base := strings.ToLower(lang)
	if i := strings.IndexAny(base, "-_"); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "en"
	}
	tag, ok := tags[base]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	return &Localizer{
		lang:    base,
		printer: message.NewPrinter(tag, message.Catalog(buildCatalog())),
	}, nil
}

var defaultLocalizer = sync.OnceValue(func() *Localizer {
	loc, _ := NewLocalizer("en")
	return loc
})

// DefaultLocalizer returns the English localizer.
func DefaultLocalizer() *Localizer {
	return defaultLocalizer()
}

// Language returns the base language code.
func (l *Localizer) Language() string { return l.lang }

// Sprintf renders key with args.
func (l *Localizer) Sprintf(key Key, args ...any) string {
	return l.printer.Sprintf(string(key), args...)
}
