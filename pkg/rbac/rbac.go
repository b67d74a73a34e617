package rbac

// 权限常量
const (
	PermissionReadProgress    = "progress:read"
	PermissionAssignStage     = "stage:assign"
	PermissionUpdateActivity  = "activity:update"
	PermissionRefreshProgress = "progress:refresh"
	PermissionReplayOutbox    = "outbox:replay"
)

// 角色常量
const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleAssociate = "asociado"
	RoleClient    = "cliente"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermissionReadProgress,
		PermissionAssignStage,
		PermissionUpdateActivity,
		PermissionRefreshProgress,
		PermissionReplayOutbox,
	},
	RoleStaff: {
		PermissionReadProgress,
		PermissionAssignStage,
		PermissionUpdateActivity,
	},
	RoleAssociate: {
		PermissionReadProgress,
		PermissionUpdateActivity,
	},
	RoleClient: {
		PermissionReadProgress,
	},
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
