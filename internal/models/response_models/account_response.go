package response_models

type LoginResponse struct {
	Token    string `json:"token"`
	PlanTier string `json:"planTier"`
}

type AccountResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	PlanTier  string `json:"planTier"`
}
