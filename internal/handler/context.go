package handler

type ContextKey string

var (
	RoleCtxKey         ContextKey = "role"
	SubCtxKey          ContextKey = "sub"
	MyInfoCtx          ContextKey = "myInfo"
	UserInfoCtx        ContextKey = "userInfo"
	SurgeryCtx         ContextKey = "surgery"
	OperatingRoomCtx   ContextKey = "operatingRoom"
	SurgeonCtx         ContextKey = "surgeon"
	EquipmentUnitCtx   ContextKey = "equipmentUnit"
	OptimizationRunCtx ContextKey = "optimizationRun"
)
