package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ChangeEmailMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type OptimizationFinishedMailData struct {
	FullName       string  `json:"fullName"`
	OptimizationID string  `json:"optimizationID"`
	ScheduleDate   string  `json:"scheduleDate"`
	Status         string  `json:"status"`
	Score          float64 `json:"score"`
}
