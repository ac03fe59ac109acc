package apix

import (
	"context"
	"net/http"
	"net/url"

	"somp/ordersync/internal/entity"
)

// FetchStaff 拉取员工列表（配送员下拉等）
func (c *Client) FetchStaff(ctx context.Context) ([]entity.Staff, error) {
	var staff []entity.Staff
	if err := c.do(ctx, http.MethodGet, "/staff", nil, &staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// CreateStaff 新增员工
func (c *Client) CreateStaff(ctx context.Context, member *entity.Staff) (*entity.Staff, error) {
	var created entity.Staff
	if err := c.do(ctx, http.MethodPost, "/staff", member, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateStaff 更新员工
func (c *Client) UpdateStaff(ctx context.Context, id string, member *entity.Staff) (*entity.Staff, error) {
	var updated entity.Staff
	if err := c.do(ctx, http.MethodPut, "/staff/"+url.PathEscape(id), member, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteStaff 删除员工
func (c *Client) DeleteStaff(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/staff/"+url.PathEscape(id), nil, nil)
}
