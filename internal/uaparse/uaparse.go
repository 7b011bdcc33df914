// Package uaparse 从 User-Agent 中提取设备、浏览器和操作系统
package uaparse

import (
	"strings"

	"github.com/mssola/useragent"
)

// 设备分类
const (
	DeviceIPhone  = "iPhone"
	DeviceIPad    = "iPad"
	DeviceAndroid = "Android"
	DeviceBot     = "Bot"
	DeviceMobile  = "Mobile"
	DeviceDesktop = "Desktop"
)

// Client 解析结果, 无法识别的字段为 nil
type Client struct {
	Device  *string
	Browser *string
	OS      *string
}

// Parse 解析 User-Agent, 空字符串返回全部为 nil 的结果
func Parse(raw string) Client {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Client{}
	}

	ua := useragent.New(raw)
	device := classifyDevice(ua, raw)

	var browser *string
	if name, _ := ua.Browser(); name != "" {
		browser = &name
	}

	var os *string
	if name := ua.OSInfo().Name; name != "" {
		os = &name
	} else if name := ua.OS(); name != "" {
		os = &name
	}

	return Client{Device: &device, Browser: browser, OS: os}
}

func classifyDevice(ua *useragent.UserAgent, raw string) string {
	switch {
	case ua.Bot():
		return DeviceBot
	case strings.Contains(raw, "iPad"):
		return DeviceIPad
	case strings.Contains(raw, "iPhone"):
		return DeviceIPhone
	case strings.Contains(raw, "Android"):
		return DeviceAndroid
	case ua.Mobile():
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}
