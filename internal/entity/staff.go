package entity

// StaffRole 员工角色
type StaffRole string

const (
	RoleAdmin            StaffRole = "Admin"
	RoleStaff            StaffRole = "Staff"
	RoleExecutive        StaffRole = "Executive"
	RoleInventoryManager StaffRole = "Inventory Manager"
)

// Staff 员工实体
// Password 为不透明凭证，核心逻辑不关心其内容
type Staff struct {
	StorageID string    `json:"_id"`
	Name      string    `json:"name"`
	Role      StaffRole `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Password  string    `json:"password,omitempty"`
}
