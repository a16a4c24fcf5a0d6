package shared

// Resource names a protected area of the API.
type Resource string

// Action names an operation on a Resource.
type Action string

// Protected resources.
const (
	ResourceUsers        Resource = "users"
	ResourceCards        Resource = "cards"
	ResourceTransactions Resource = "transactions"
	ResourceAccount      Resource = "account"
	ResourceCheck        Resource = "check"
)

// User management actions.
const (
	ActionShowAll     Action = "show_all"
	ActionDeleteAny   Action = "delete_any"
	ActionDisableUser Action = "disable_user"
	ActionManageRole  Action = "manage_role"
)

// Card actions.
const (
	ActionAddMy       Action = "add_my"
	ActionShowMy      Action = "show_my"
	ActionDeleteMy    Action = "delete_my"
	ActionUnfreezeMy  Action = "unfreeze_my"
	ActionUnfreezeAny Action = "unfreeze_any"
)

// Transaction actions.
const (
	ActionMakePayment   Action = "make_payment"
	ActionShowForMyCard Action = "show_for_my_card"
)

// Account actions.
const (
	ActionShowInfo   Action = "show_info"
	ActionChangeInfo Action = "change_info"
	ActionLogout     Action = "logout"
)

// ActionHealthCheck guards the readiness endpoint.
const ActionHealthCheck Action = "health_check"
