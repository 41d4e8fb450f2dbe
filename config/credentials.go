package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hashicorp/vault/api"
)

// ErrCredentialNotFound is returned when a provider has no value for the key
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialSource resolves the mapping service credential
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// EnvCredentialSource reads the credential from an environment variable
type EnvCredentialSource struct {
	Var string
}

func (e *EnvCredentialSource) Credential(ctx context.Context) (string, error) {
	value := strings.TrimSpace(os.Getenv(e.Var))
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrCredentialNotFound, e.Var)
	}
	return value, nil
}

// VaultCredentialSource reads the credential from a HashiCorp Vault secret
type VaultCredentialSource struct {
	client *api.Client
	path   string
	field  string
}

// NewVaultCredentialSource creates a Vault-backed source from configuration
func NewVaultCredentialSource(config *Config) (*VaultCredentialSource, error) {
	client, err := api.NewClient(&api.Config{
		Address: config.Credentials.Vault.Address,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if config.Credentials.Vault.Token != "" {
		client.SetToken(config.Credentials.Vault.Token)
	}

	return &VaultCredentialSource{
		client: client,
		path:   config.Credentials.Vault.Path,
		field:  config.Credentials.Key,
	}, nil
}

func (v *VaultCredentialSource) Credential(ctx context.Context) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.path)
	if err != nil {
		return "", fmt.Errorf("failed to read from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: no secret at path %s", ErrCredentialNotFound, v.path)
	}

	data := secret.Data
	// KV v2 nests the payload under "data".
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[v.field]
	if !ok {
		return "", fmt.Errorf("%w: key %s not in Vault secret %s", ErrCredentialNotFound, v.field, v.path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key %s is not a string", v.field)
	}
	return strValue, nil
}

// AWSCredentialSource reads the credential from AWS Secrets Manager
type AWSCredentialSource struct {
	client   secretsmanageriface.SecretsManagerAPI
	secretID string
	field    string
}

// NewAWSCredentialSource creates an AWS Secrets Manager source from configuration
func NewAWSCredentialSource(config *Config) (*AWSCredentialSource, error) {
	awsCfg := &aws.Config{Region: aws.String(config.Credentials.AWS.Region)}
	if config.Credentials.AWS.AccessKey != "" && config.Credentials.AWS.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			config.Credentials.AWS.AccessKey,
			config.Credentials.AWS.SecretKey,
			"",
		)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newAWSCredentialSource(secretsmanager.New(sess), config.Credentials.AWS.SecretID, config.Credentials.Key), nil
}

func newAWSCredentialSource(client secretsmanageriface.SecretsManagerAPI, secretID, field string) *AWSCredentialSource {
	return &AWSCredentialSource{client: client, secretID: secretID, field: field}
}

func (a *AWSCredentialSource) Credential(ctx context.Context) (string, error) {
	result, err := a.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret from AWS: %w", err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("%w: secret %s has no string value", ErrCredentialNotFound, a.secretID)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return "", fmt.Errorf("failed to parse AWS secret JSON: %w", err)
	}

	value, ok := secrets[a.field]
	if !ok {
		return "", fmt.Errorf("%w: key %s not in AWS secret %s", ErrCredentialNotFound, a.field, a.secretID)
	}
	return value, nil
}

// CachedCredentialSource memoizes a source's value for a limited time
type CachedCredentialSource struct {
	source CredentialSource
	key    string
	cache  *expirable.LRU[string, string]
}

// NewCachedCredentialSource wraps source with an expiring LRU cache
func NewCachedCredentialSource(source CredentialSource, key string, size int, ttl time.Duration) *CachedCredentialSource {
	return &CachedCredentialSource{
		source: source,
		key:    key,
		cache:  expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func (c *CachedCredentialSource) Credential(ctx context.Context) (string, error) {
	if value, ok := c.cache.Get(c.key); ok {
		return value, nil
	}
	value, err := c.source.Credential(ctx)
	if err != nil {
		return "", err
	}
	c.cache.Add(c.key, value)
	return value, nil
}

// Purge drops cached values
func (c *CachedCredentialSource) Purge() {
	c.cache.Purge()
}

// NewCredentialSource creates the configured credential source
func NewCredentialSource(config *Config) (CredentialSource, error) {
	provider := config.Credentials.Provider
	if provider == "" {
		provider = ProviderEnv
	}

	var (
		source CredentialSource
		err    error
	)
	switch provider {
	case ProviderEnv:
		source = &EnvCredentialSource{Var: config.Credentials.Key}
	case ProviderVault:
		source, err = NewVaultCredentialSource(config)
	case ProviderAWS:
		source, err = NewAWSCredentialSource(config)
	default:
		return nil, fmt.Errorf("unsupported credential provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	if config.Credentials.CacheTTL > 0 {
		size := config.Credentials.CacheSize
		if size <= 0 {
			size = 1
		}
		source = NewCachedCredentialSource(source, provider+":"+config.Credentials.Key, size, config.Credentials.CacheTTL)
	}
	return source, nil
}
