// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notice

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizer_Languages(t *testing.T) {
	en, err := NewLocalizer("en")
	require.NoError(t, err)
	assert.Equal(t, "Session expired, please log in again", en.Sprintf(KeySessionExpired))

	zh, err := NewLocalizer("zh-CN")
	require.NoError(t, err)
	assert.Equal(t, "zh", zh.Language())
	assert.Equal(t, "登录已过期，请重新登录", zh.Sprintf(KeySessionExpired))
	assert.Equal(t, "您没有权限访问此页面", zh.Sprintf(KeyNoPagePermission))

	_, err = NewLocalizer("fr")
	assert.Error(t, err)
}

func TestLocalizer_Args(t *testing.T) {
	en := DefaultLocalizer()
	assert.Equal(t, "Logged in as alice", en.Sprintf(KeyLoggedIn, "alice"))
	assert.Equal(t, "Logged out after 15 minutes of inactivity", en.Sprintf(KeyIdleLogout, 15))
}

func TestCatalog_EveryKeyHasEveryLanguage(t *testing.T) {
	for key, byLang := range messages {
		for _, lang := range Languages {
			assert.NotEmpty(t, byLang[lang], "%s missing %s", key, lang)
		}
	}
}

func TestNotice_Message(t *testing.T) {
	zh, err := NewLocalizer("zh")
	require.NoError(t, err)

	assert.Equal(t, "secret name already exists", Remote("secret name already exists").Message(zh))
	assert.Equal(t, "请求失败", Remote("").Message(zh))
	assert.Equal(t, "Request timed out, please try again later", Error(KeyTimeout).Message(nil))
}

func TestFanoutAndRecorder(t *testing.T) {
	var a, b Recorder
	n := Fanout(&a, nil, &b)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Notify(Error(KeyNetworkError))
		}()
	}
	wg.Wait()

	assert.Len(t, a.Notices(), 10)
	assert.Len(t, b.Keys(), 10)
	a.Reset()
	assert.Empty(t, a.Notices())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "success", LevelSuccess.String())
	assert.Equal(t, "info", LevelInfo.String())
}
