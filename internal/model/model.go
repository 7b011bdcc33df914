package model

// All 返回需要迁移的全部模型
func All() []any {
	return []any{
		&User{},
		&Subscription{},
		&QRCode{},
		&Scan{},
		&APIKey{},
		&Session{},
	}
}

// StringPtr 空字符串返回 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
