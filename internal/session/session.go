package session

import (
	"context"

	"go.uber.org/atomic"

	"somp/ordersync/internal/entity"
	"somp/ordersync/pkg/logger"
)

// Session 登录会话
// 持有 Bearer Token 与当前用户身份；任意请求收到 401 时执行一次性全局销毁
type Session struct {
	UserID   string
	UserName string
	Role     entity.StaffRole

	token    *atomic.String
	torndown *atomic.Bool
	onLogout func() // 登出回调（宿主负责跳转登录）
	log      logger.Logger
}

// New 创建会话
func New(userID, userName string, role entity.StaffRole, token string, onLogout func(), log logger.Logger) *Session {
	return &Session{
		UserID:   userID,
		UserName: userName,
		Role:     role,
		token:    atomic.NewString(token),
		torndown: atomic.NewBool(false),
		onLogout: onLogout,
		log:      log,
	}
}

// Token 返回当前 Token（实现 apix.TokenSource）
func (s *Session) Token() string {
	return s.token.Load()
}

// IsAdmin 当前用户是否为管理员
func (s *Session) IsAdmin() bool {
	return s.Role == entity.RoleAdmin
}

// HandleUnauthorized 处理 401（实现 apix 的 401 回调）
// 多个请求并发失败时，凭证清除与登出回调只执行一次
func (s *Session) HandleUnauthorized() {
	if !s.torndown.CAS(false, true) {
		return
	}

	s.token.Store("")
	s.log.Warnf(context.Background(), "[Session] Unauthorized, session torn down for user: %s", s.UserID)

	if s.onLogout != nil {
		s.onLogout()
	}
}

// Active 会话是否仍然有效
func (s *Session) Active() bool {
	return !s.torndown.Load()
}
