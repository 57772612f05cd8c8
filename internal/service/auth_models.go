package service

type SignupInput struct {
	Username  string
	Email     string
	Password  string
	IPAddress *string
}

type LoginInput struct {
	Username  string
	Password  string
	IPAddress *string
}

type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
}

type TokenPair struct {
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
}

type AccessTokenResult struct {
	AccessToken string
	ExpiresIn   int64
}
