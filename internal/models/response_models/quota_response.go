package response_models

type UsageSummary struct {
	DailyUsed    int64 `json:"dailyUsed"`
	DailyLimit   int64 `json:"dailyLimit"`
	MonthlyUsed  int64 `json:"monthlyUsed"`
	MonthlyLimit int64 `json:"monthlyLimit"`
}

type ChatResponse struct {
	Answer     string `json:"answer"`
	TokensUsed int64  `json:"tokensUsed"`
}
