package mailnotify

// APIPrefix is the path prefix every backend endpoint is served under.
const APIPrefix = "/api/v1"

// Credential keys used by persistent credential stores.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// Backend endpoint paths, relative to APIPrefix.
const (
	LoginPath          = "/auth/login"
	RegisterPath       = "/auth/register"
	RefreshPath        = "/auth/refresh"
	ForgotPasswordPath = "/auth/forgot-password"
	ResetPasswordPath  = "/auth/reset-password"
	ProfilePath        = "/users/me"
)

// DefaultErrorMessage is returned by ErrorMessage when nothing better is known.
const DefaultErrorMessage = "Something went wrong. Please try again."
