package apix

import (
	"context"
	"net/http"

	"somp/ordersync/internal/entity"
)

// FetchProducts 拉取产品全量列表（库存检查屏幕使用）
func (c *Client) FetchProducts(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}
