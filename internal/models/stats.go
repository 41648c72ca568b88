package models

// DashboardStats сводка для панели администратора.
type DashboardStats struct {
	TotalUsers     int     `json:"totalUsers"`
	Aparatur       int     `json:"aparatur"`
	Pendamping     int     `json:"pendamping"`
	Bumdes         int     `json:"bumdes"`
	Umum           int     `json:"umum"`
	TotalQuestions int     `json:"totalQuestions"`
	PremiumUsers   int     `json:"premiumUsers"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

// GrowthPoint число регистраций за месяц.
type GrowthPoint struct {
	Month string `json:"month"`
	Users int    `json:"users"`
}

// CategoryCount число вопросов в категории.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
