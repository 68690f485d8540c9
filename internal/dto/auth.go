package dto

// ── 认证模块 DTO ──

// GoogleLoginRequest Google 登录请求
type GoogleLoginRequest struct {
	IDToken    string `json:"id_token"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SignupRequest 提交注册资料（首次登录后）
type SignupRequest struct {
	InviteCode  string `json:"invite_code"  binding:"required"`
	Nickname    string `json:"nickname"     binding:"required,min=2,max=20"`
	Phone       string `json:"phone"        binding:"required,max=30"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}
