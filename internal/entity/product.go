package entity

// Product 产品实体
// 不变量：StockQuantity >= 0，库存只经由订单发货/取消变动，客户端不直接改写
type Product struct {
	StorageID         string `json:"_id"`
	Name              string `json:"name"`
	BrandName         string `json:"brandName,omitempty"`
	Dimension         string `json:"dimension,omitempty"`
	StockQuantity     int    `json:"stockQuantity"`
	LowStockThreshold int    `json:"lowStockThreshold"`
}

// IsLowStock 是否达到低库存阈值
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}
