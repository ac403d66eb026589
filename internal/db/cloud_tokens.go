package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

// TokenProvider supplies the short-lived password used for a cloud IAM login.
// String must not reveal secrets; it is written to the verbose log.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)
	String() string
}

const (
	// azurePostgresScope is the Entra ID resource for Azure Database for PostgreSQL.
	azurePostgresScope = "https://ossrdbms-aad.database.windows.net/.default"

	// rdsTokenLifetime is how long RDS accepts a generated auth token.
	rdsTokenLifetime = 15 * time.Minute
)

// AzureTokenProvider requests Entra ID access tokens from any azcore credential.
type AzureTokenProvider struct {
	credential azcore.TokenCredential
	label      string
}

// NewAzureServicePrincipalProvider authenticates with a client secret, the
// usual setup for scheduled imports.
func NewAzureServicePrincipalProvider(tenantID, clientID, clientSecret string) (*AzureTokenProvider, error) {
	if missing := missingFields(map[string]string{
		"tenant ID":     tenantID,
		"client ID":     clientID,
		"client secret": clientSecret,
	}); missing != "" {
		return nil, fmt.Errorf("azure service principal is missing %s: %w", missing, csvimport.ErrInvalidConfig)
	}

	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return &AzureTokenProvider{
		credential: cred,
		label:      fmt.Sprintf("Azure service principal (tenant=%s, client=%s)", tenantID, clientID),
	}, nil
}

// NewAzureDefaultCredentialProvider uses DefaultAzureCredential: environment,
// workload identity, managed identity, then developer CLI logins.
func NewAzureDefaultCredentialProvider() (*AzureTokenProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w", err)
	}
	return &AzureTokenProvider{credential: cred, label: "Azure default credential chain"}, nil
}

func (p *AzureTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	tok, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{azurePostgresScope}})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azure token request failed: %w", err)
	}
	return tok.Token, tok.ExpiresOn, nil
}

func (p *AzureTokenProvider) String() string { return p.label }

// AWSIAMTokenProvider signs RDS IAM auth tokens with the default AWS credential chain.
type AWSIAMTokenProvider struct {
	endpoint string // host:port
	region   string
	username string
}

// NewAWSIAMTokenProvider validates the RDS endpoint, region and IAM-enabled user.
func NewAWSIAMTokenProvider(endpoint, region, username string) (*AWSIAMTokenProvider, error) {
	if missing := missingFields(map[string]string{
		"endpoint (host:port)":                endpoint,
		"region (--aws-region or AWS_REGION)": region,
		"username":                            username,
	}); missing != "" {
		return nil, fmt.Errorf("AWS IAM auth is missing %s: %w", missing, csvimport.ErrInvalidConfig)
	}
	return &AWSIAMTokenProvider{endpoint: endpoint, region: region, username: username}, nil
}

func (p *AWSIAMTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(p.region))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	issued := time.Now()
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, awsCfg.Credentials)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign RDS auth token: %w", err)
	}
	return token, issued.Add(rdsTokenLifetime), nil
}

func (p *AWSIAMTokenProvider) String() string {
	return fmt.Sprintf("AWS RDS IAM (endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}

// missingFields lists the names whose values are empty, in sorted order.
func missingFields(fields map[string]string) string {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return strings.Join(missing, ", ")
}
