package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretRef names where the results database password comes from.
// At most one source may be set; the zero value means no password.
type SecretRef struct {
	// AwsSecretArn is the ARN of an AWS Secrets Manager secret holding a
	// JSON object. Key must also be set to select the password field.
	AwsSecretArn string `mapstructure:"aws-secret-arn"`
	Key          string `mapstructure:"aws-secret-key"`

	// InsecureValue is the password in plain text. Use only for development.
	InsecureValue string `mapstructure:"insecure-value"`

	// EnvVar is the name of an environment variable holding the password.
	EnvVar string `mapstructure:"env-var"`
}

type secretSource int

const (
	sourceNone secretSource = iota
	sourceAWS
	sourceInsecure
	sourceEnv
)

var errSecretSources = errors.New("set only one of aws-secret-arn, insecure-value or env-var")

func (r SecretRef) source() (secretSource, error) {
	var found []secretSource
	if r.AwsSecretArn != "" {
		found = append(found, sourceAWS)
	}
	if r.InsecureValue != "" {
		found = append(found, sourceInsecure)
	}
	if r.EnvVar != "" {
		found = append(found, sourceEnv)
	}
	switch len(found) {
	case 0:
		if r.Key != "" {
			return sourceNone, errors.New("aws-secret-key requires aws-secret-arn")
		}
		return sourceNone, nil
	case 1:
		if found[0] == sourceAWS && r.Key == "" {
			return sourceNone, errors.New("aws-secret-arn requires aws-secret-key")
		}
		return found[0], nil
	default:
		return sourceNone, errSecretSources
	}
}

// String describes the source without revealing the password.
func (r SecretRef) String() string {
	switch src, _ := r.source(); src {
	case sourceAWS:
		return fmt.Sprintf("aws:%s#%s", r.AwsSecretArn, r.Key)
	case sourceEnv:
		return "env:" + r.EnvVar
	case sourceInsecure:
		return "insecure-value"
	default:
		return "none"
	}
}

// IsZero reports whether no source is configured.
func (r SecretRef) IsZero() bool {
	return r == SecretRef{}
}

// Validate checks that at most one source is configured and that an AWS
// source names its key.
func (r SecretRef) Validate() error {
	_, err := r.source()
	return err
}

// SecretsManagerClient is the part of the AWS Secrets Manager API needed to
// read a password.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ResolvePassword returns the password ref points at, or "" for the zero
// ref. client serves AWS sources; when nil, one is built from the ambient
// AWS configuration.
func ResolvePassword(ctx context.Context, ref SecretRef, client SecretsManagerClient) (string, error) {
	src, err := ref.source()
	if err != nil {
		return "", err
	}

	switch src {
	case sourceInsecure:
		return ref.InsecureValue, nil
	case sourceEnv:
		val, ok := os.LookupEnv(ref.EnvVar)
		if !ok {
			return "", fmt.Errorf("environment variable %q not set", ref.EnvVar)
		}
		return val, nil
	case sourceAWS:
		if client == nil {
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return "", fmt.Errorf("load AWS config: %w", err)
			}
			client = secretsmanager.NewFromConfig(cfg)
		}
		return awsSecretKey(ctx, client, ref.AwsSecretArn, ref.Key)
	default:
		return "", nil
	}
}

func awsSecretKey(ctx context.Context, client SecretsManagerClient, arn, key string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", arn, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", arn)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", arn, err)
	}
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %s", key, arn)
	}
	var password string
	if err := json.Unmarshal(raw, &password); err != nil {
		return "", fmt.Errorf("key %q of secret %s is not a string", key, arn)
	}
	return password, nil
}
