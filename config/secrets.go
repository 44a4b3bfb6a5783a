package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrSecretNotFound is returned when a provider has no value for a name.
var ErrSecretNotFound = errors.New("secret not found")

// SecretProvider resolves named secrets at run time.
type SecretProvider interface {
	Secret(ctx context.Context, name string) (string, error)
}

// EnvProvider reads secrets from the process environment.
type EnvProvider struct {
	Lookup func(string) (string, bool)
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{Lookup: os.LookupEnv}
}

func (p *EnvProvider) Secret(_ context.Context, name string) (string, error) {
	v, ok := p.Lookup(name)
	if !ok || v == "" {
		return "", fmt.Errorf("env %s: %w", name, ErrSecretNotFound)
	}
	return v, nil
}

// SSMGetParameterAPI is the subset of the SSM client used by SSMProvider.
type SSMGetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMProvider reads (decrypted) SecureString values from Parameter Store.
type SSMProvider struct {
	client  SSMGetParameterAPI
	decrypt bool
}

func NewSSMProvider(client SSMGetParameterAPI, decrypt bool) *SSMProvider {
	return &SSMProvider{client: client, decrypt: decrypt}
}

func (p *SSMProvider) Secret(ctx context.Context, name string) (string, error) {
	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(p.decrypt),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("ssm %s: %w", name, ErrSecretNotFound)
		}
		return "", fmt.Errorf("ssm get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("ssm %s: %w", name, ErrSecretNotFound)
	}

	return *result.Parameter.Value, nil
}
