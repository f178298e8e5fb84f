package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "DSPACE"

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN)
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL of the REST API
	ServerURL string

	// Public base URL of the user interface
	UIURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	CORS          CORSConfig
	JWT           JWTConfig
	CSRF          CSRFConfig
	Auth          AuthConfig
	Redirect      RedirectConfig
	Features      FeatureConfig
	UserAgreement UserAgreementConfig
	Observability ObservabilityConfig
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig controls login token issuance.
type JWTConfig struct {
	// Secret is combined with the per-EPerson session salt to sign tokens.
	Secret string

	// Expiration is the lifetime of a freshly minted token.
	Expiration time.Duration

	// RefreshThreshold is the token age after which a new token is issued silently.
	RefreshThreshold time.Duration

	// AuthCookieMaxAge bounds the one-time cookie used across login redirects.
	AuthCookieMaxAge time.Duration
}

// CSRFConfig names the cookie, headers and parameter of the double-submit token.
type CSRFConfig struct {
	CookieName         string
	HeaderName         string
	ResponseHeaderName string
	ParameterName      string
	CrossSite          bool
}

// AuthConfig lists the enabled login methods and their inputs.
type AuthConfig struct {
	// Methods in WWW-Authenticate order (password, shibboleth, oidc, orcid, saml, cas, ip).
	Methods []string

	Federated FederatedConfig

	SpecialGroups []SpecialGroupConfig

	// AccessManagerGroups grant MANAGE_ACCESS_GROUP to their members.
	AccessManagerGroups []string

	// GroupCacheTTL bounds how long resolved group memberships are reused.
	GroupCacheTTL time.Duration
}

// FederatedConfig names the request headers populated by an upstream identity provider.
type FederatedConfig struct {
	NetIDHeader  string
	EmailHeader  string
	NameHeader   string
	GroupsHeader string
	GroupsPath   string
}

// SpecialGroupConfig grants a group to requests originating from the given ranges.
type SpecialGroupConfig struct {
	Group  string   `mapstructure:"group"`
	Ranges []string `mapstructure:"ranges"`
}

// RedirectConfig extends the set of hosts accepted as post-login redirect targets.
type RedirectConfig struct {
	AllowedHosts []string
}

// FeatureConfig holds runtime feature toggles.
type FeatureConfig struct {
	VersionHistoryAdminOnly bool
}

// UserAgreementConfig controls end-user agreement enforcement.
type UserAgreementConfig struct {
	Required    bool
	ExemptPaths []string
}

// ObservabilityConfig configures the OpenTelemetry exporter.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPProtocol   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// DefaultExemptPaths are reachable without having accepted the user agreement.
var DefaultExemptPaths = []string{
	"/api/authn/**",
	"/api/eperson/epersons/*",
	"/api/core/sites/**",
	"/api/config/**",
	"/health",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "file:dspace.db?cache=shared")
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("server_url", "http://localhost:8080/server")
	v.SetDefault("ui_url", "http://localhost:4000")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", 30*time.Minute)
	v.SetDefault("jwt.refresh_threshold", 5*time.Minute)
	v.SetDefault("jwt.auth_cookie_max_age", 60*time.Second)

	v.SetDefault("csrf.cookie_name", "DSPACE-XSRF-COOKIE")
	v.SetDefault("csrf.header_name", "X-XSRF-TOKEN")
	v.SetDefault("csrf.response_header_name", "DSPACE-XSRF-TOKEN")
	v.SetDefault("csrf.parameter_name", "_csrf")
	v.SetDefault("csrf.cross_site", true)

	v.SetDefault("auth.methods", []string{"password"})
	v.SetDefault("auth.federated.netid_header", "SHIB-NETID")
	v.SetDefault("auth.federated.email_header", "SHIB-MAIL")
	v.SetDefault("auth.federated.name_header", "SHIB-DISPLAYNAME")
	v.SetDefault("auth.federated.groups_header", "")
	v.SetDefault("auth.federated.groups_path", "")
	v.SetDefault("auth.access_manager_groups", []string{})
	v.SetDefault("auth.group_cache_ttl", time.Minute)

	v.SetDefault("redirect.allowed_hosts", []string{})
	v.SetDefault("features.version_history_admin_only", false)
	v.SetDefault("user_agreement.required", false)
	v.SetDefault("user_agreement.exempt_paths", DefaultExemptPaths)

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", "http/protobuf")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.service_name", "dspace-rest")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
}

// Load reads configuration from the global viper instance. A config file may
// already have been read by the caller; DSPACE_ prefixed environment
// variables take precedence over it.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from the given viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:      v.GetString("database_url"),
		ServerAddr:       v.GetString("server_addr"),
		ServerURL:        strings.TrimRight(v.GetString("server_url"), "/"),
		UIURL:            strings.TrimRight(v.GetString("ui_url"), "/"),
		MaxDBConnections: v.GetInt("max_db_connections"),
		Debug:            v.GetBool("debug"),
		CORS: CORSConfig{
			AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		},
		JWT: JWTConfig{
			Secret:           v.GetString("jwt.secret"),
			Expiration:       v.GetDuration("jwt.expiration"),
			RefreshThreshold: v.GetDuration("jwt.refresh_threshold"),
			AuthCookieMaxAge: v.GetDuration("jwt.auth_cookie_max_age"),
		},
		CSRF: CSRFConfig{
			CookieName:         v.GetString("csrf.cookie_name"),
			HeaderName:         v.GetString("csrf.header_name"),
			ResponseHeaderName: v.GetString("csrf.response_header_name"),
			ParameterName:      v.GetString("csrf.parameter_name"),
			CrossSite:          v.GetBool("csrf.cross_site"),
		},
		Auth: AuthConfig{
			Methods: normalizeMethods(v.GetStringSlice("auth.methods")),
			Federated: FederatedConfig{
				NetIDHeader:  v.GetString("auth.federated.netid_header"),
				EmailHeader:  v.GetString("auth.federated.email_header"),
				NameHeader:   v.GetString("auth.federated.name_header"),
				GroupsHeader: v.GetString("auth.federated.groups_header"),
				GroupsPath:   v.GetString("auth.federated.groups_path"),
			},
			AccessManagerGroups: v.GetStringSlice("auth.access_manager_groups"),
			GroupCacheTTL:       v.GetDuration("auth.group_cache_ttl"),
		},
		Redirect: RedirectConfig{
			AllowedHosts: v.GetStringSlice("redirect.allowed_hosts"),
		},
		Features: FeatureConfig{
			VersionHistoryAdminOnly: v.GetBool("features.version_history_admin_only"),
		},
		UserAgreement: UserAgreementConfig{
			Required:    v.GetBool("user_agreement.required"),
			ExemptPaths: v.GetStringSlice("user_agreement.exempt_paths"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   v.GetString("observability.otlp_endpoint"),
			OTLPProtocol:   v.GetString("observability.otlp_protocol"),
			OTLPInsecure:   v.GetBool("observability.otlp_insecure"),
			ServiceName:    v.GetString("observability.service_name"),
			ServiceVersion: v.GetString("observability.service_version"),
			Environment:    v.GetString("observability.environment"),
		},
	}

	if err := v.UnmarshalKey("auth.special_groups", &cfg.Auth.SpecialGroups); err != nil {
		return nil, fmt.Errorf("parse auth.special_groups: %w", err)
	}

	if len(cfg.CORS.AllowedOrigins) == 0 && cfg.UIURL != "" {
		cfg.CORS.AllowedOrigins = []string{cfg.UIURL}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required")
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server_url is required")
	}
	if cfg.JWT.Secret == "" && !cfg.Debug {
		return nil, fmt.Errorf("jwt.secret is required unless debug is enabled")
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "insecure-debug-secret"
	}
	if cfg.JWT.RefreshThreshold >= cfg.JWT.Expiration {
		return nil, fmt.Errorf("jwt.refresh_threshold (%s) must be shorter than jwt.expiration (%s)",
			cfg.JWT.RefreshThreshold, cfg.JWT.Expiration)
	}

	return cfg, nil
}

// MethodEnabled reports whether the named login method is configured.
func (c *AuthConfig) MethodEnabled(name string) bool {
	for _, m := range c.Methods {
		if m == name {
			return true
		}
	}
	return false
}

func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	seen := make(map[string]struct{}, len(methods))
	for _, entry := range methods {
		for _, m := range strings.Split(entry, ",") {
			m = strings.ToLower(strings.TrimSpace(m))
			if m == "" {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
