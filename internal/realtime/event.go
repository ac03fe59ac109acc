package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 事件频道（与后端推送契约一致：<entity>:<action>）
const (
	ChannelOrderCreated = "order:created"
	ChannelOrderUpdated = "order:updated"
	ChannelOrderDeleted = "order:deleted"

	ChannelProductCreated = "product:created"
	ChannelProductUpdated = "product:updated"
	ChannelProductDeleted = "product:deleted"

	ChannelStaffCreated = "staff:created"
	ChannelStaffUpdated = "staff:updated"
	ChannelStaffDeleted = "staff:deleted"

	ChannelUserConnected = "user:connected"
)

// 实体与动作（频道名拆分结果）
const (
	EntityOrder   = "order"
	EntityProduct = "product"
	EntityStaff   = "staff"
	EntityUser    = "user"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Envelope 事件载荷封包
// Data 携带完整的变更后实体；操作人字段只用于通知文案，不参与核心逻辑
type Envelope struct {
	Data      json.RawMessage `json:"data,omitempty"`
	ID        string          `json:"id,omitempty"`
	OrderID   string          `json:"orderId,omitempty"`
	CreatedBy string          `json:"createdBy,omitempty"`
	UpdatedBy string          `json:"updatedBy,omitempty"`
	DeletedBy string          `json:"deletedBy,omitempty"`
}

// Event 实时事件（框架内部流转）
type Event struct {
	Channel string // 频道名，如 order:updated
	Entity  string // 实体，如 order
	Action  string // 动作，如 updated
	Envelope
}

// ParseEvent 解析频道名与载荷
func ParseEvent(channel string, payload []byte) (*Event, error) {
	entity, action, ok := strings.Cut(channel, ":")
	if !ok {
		return nil, fmt.Errorf("invalid channel name: %s", channel)
	}

	ev := &Event{
		Channel: channel,
		Entity:  entity,
		Action:  action,
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ev.Envelope); err != nil {
			return nil, fmt.Errorf("unmarshal event payload failed: %w", err)
		}
	}

	return ev, nil
}

// Actor 事件操作人（通知文案用）
func (e *Event) Actor() string {
	switch {
	case e.CreatedBy != "":
		return e.CreatedBy
	case e.UpdatedBy != "":
		return e.UpdatedBy
	case e.DeletedBy != "":
		return e.DeletedBy
	default:
		return ""
	}
}

// OrderChannels 订单相关频道
func OrderChannels() []string {
	return []string{ChannelOrderCreated, ChannelOrderUpdated, ChannelOrderDeleted}
}

// ProductChannels 产品相关频道
func ProductChannels() []string {
	return []string{ChannelProductCreated, ChannelProductUpdated, ChannelProductDeleted}
}

// StaffChannels 员工相关频道
func StaffChannels() []string {
	return []string{ChannelStaffCreated, ChannelStaffUpdated, ChannelStaffDeleted}
}
