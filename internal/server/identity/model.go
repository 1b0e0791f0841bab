package identity

// User is a registered account. The password hash never leaves the package.
type User struct {
	Username string
	Name     string
	Country  string

	passwordHash []byte
}

// Seed describes an account created at start-up.
type Seed struct {
	Username string
	Password string
	Name     string
	Country  string
}

// DefaultSeeds are the demo accounts every fresh server starts with.
func DefaultSeeds() []Seed {
	return []Seed{
		{Username: "messi", Password: "surabaya", Name: "Lionel Messi", Country: "Argentina"},
		{Username: "henderson", Password: "surabaya", Name: "Jordan Henderson", Country: "England"},
		{Username: "lineker", Password: "surabaya", Name: "Gary Lineker", Country: "England"},
	}
}
