package db_models

// User is the local account record. At most one live provider customer id is
// kept per integrated billing provider.
type User struct {
	BaseModel
	FirstName    string
	LastName     string
	Email        string `gorm:"unique"`
	PasswordHash string
	Role         string `gorm:"default:user"`

	StripeCustomerID   string `gorm:"index"`
	PaystackCustomerID string `gorm:"index"`

	Subscriptions []Subscription
	TokenUsages   []TokenUsage
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CustomerIDFor returns the stored customer id for the given provider, or "".
func (u *User) CustomerIDFor(provider string) string {
	switch provider {
	case ProviderStripe:
		return u.StripeCustomerID
	case ProviderPaystack:
		return u.PaystackCustomerID
	}
	return ""
}

func (u *User) SetCustomerIDFor(provider, customerID string) {
	switch provider {
	case ProviderStripe:
		u.StripeCustomerID = customerID
	case ProviderPaystack:
		u.PaystackCustomerID = customerID
	}
}
