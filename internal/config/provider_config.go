package config

const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
)

type ProviderConfig interface {
	GetProviderKind() string
	GetRequireEmailConfirmation() bool
	GetResetRedirectURL() string
	GetConfirmRedirectURL() string
	GetOIDCIssuerURL() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetProviderSignUpURL() string
	GetProviderRecoverURL() string
	GetProviderLogoutURL() string
	GetSeedAdminEmail() string
	GetSeedAdminPassword() string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

// GetProviderKind is either "local" or "remote".
func (Provider) GetProviderKind() string {
	return GetEnv("AUTH_PROVIDER", ProviderLocal)
}

func (Provider) GetRequireEmailConfirmation() bool {
	return GetBool("REQUIRE_EMAIL_CONFIRMATION", true)
}

// GetResetRedirectURL is the callback the password reset link points at.
func (Provider) GetResetRedirectURL() string {
	return GetEnv("RESET_REDIRECT_URL", EnvVars{}.GetBaseURL()+"/auth/update-password")
}

func (Provider) GetConfirmRedirectURL() string {
	return GetEnv("CONFIRM_REDIRECT_URL", EnvVars{}.GetBaseURL()+"/auth/confirm")
}

func (Provider) GetOIDCIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "")
}

func (Provider) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (Provider) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (Provider) GetProviderSignUpURL() string {
	return GetEnv("PROVIDER_SIGNUP_URL", "")
}

func (Provider) GetProviderRecoverURL() string {
	return GetEnv("PROVIDER_RECOVER_URL", "")
}

func (Provider) GetProviderLogoutURL() string {
	return GetEnv("PROVIDER_LOGOUT_URL", "")
}

func (Provider) GetSeedAdminEmail() string {
	return GetEnv("SEED_ADMIN_EMAIL", "")
}

func (Provider) GetSeedAdminPassword() string {
	return GetEnv("SEED_ADMIN_PASSWORD", "")
}
