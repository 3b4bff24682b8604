package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/DrSkyle/snipesync/pkg/version"
)

// ErrCredentialsUnavailable is returned when a profile yields no usable credentials.
var ErrCredentialsUnavailable = errors.New("aws credentials unavailable")

// Session is an authenticated view of one account.
type Session interface {
	// EC2 returns a client bound to region.
	EC2(region string) EC2Client
	// VerifyIdentity returns the canonical account id.
	VerifyIdentity(ctx context.Context) (string, error)
}

// Connector opens sessions for credential profiles.
type Connector interface {
	Connect(ctx context.Context, profile, region string) (Session, error)
}

// Client encapsulates AWS SDK usage, handling authentication, region resolution, and middleware injection.
type Client struct {
	Config aws.Config
	STS    *sts.Client
}

// NewClient initializes a new AWS client for profile. Credentials are resolved lazily by the SDK;
// call VerifyCredentials to force resolution.
func NewClient(ctx context.Context, region, profile string, verbose bool) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	// Check for local endpoint overrides (used for mocking/testing).
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("SnipeSyncUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					req.Header.Set("User-Agent", version.UserAgent())
				} else {
					req.Header.Set("User-Agent", ua+" "+version.UserAgent())
				}
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})

	// Verbose mode logs every API operation.
	if verbose {
		cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
			return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("APICallLogger", func(ctx context.Context, input middleware.InitializeInput, next middleware.InitializeHandler) (
				middleware.InitializeOutput, middleware.Metadata, error,
			) {
				slog.Debug("AWS API call",
					"service", middleware.GetServiceID(ctx),
					"operation", middleware.GetOperationName(ctx),
					"profile", profile,
				)
				return next.HandleInitialize(ctx, input)
			}), middleware.Before)
		})
	}

	return &Client{
		Config: cfg,
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// VerifyCredentials forces the credential chain to resolve.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	if c.Config.Credentials == nil {
		return ErrCredentialsUnavailable
	}
	creds, err := c.Config.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
	}
	if !creds.HasKeys() {
		return ErrCredentialsUnavailable
	}
	return nil
}

// VerifyIdentity validates the session credentials and retrieves the canonical Account ID.
func (c *Client) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(result.Account), nil
}

// GetConfigForRegion returns a regional configuration copy.
func (c *Client) GetConfigForRegion(region string) aws.Config {
	cfg := c.Config.Copy()
	cfg.Region = region
	return cfg
}

// EC2 returns an EC2 client for region.
func (c *Client) EC2(region string) EC2Client {
	return ec2.NewFromConfig(c.GetConfigForRegion(region))
}

// ProfileConnector opens sessions from the shared AWS config files.
type ProfileConnector struct {
	Verbose bool
}

// Connect loads profile and resolves its credentials.
func (p ProfileConnector) Connect(ctx context.Context, profile, region string) (Session, error) {
	client, err := NewClient(ctx, region, profile, p.Verbose)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialsUnavailable, err)
	}
	if err := client.VerifyCredentials(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// ListProfiles attempts to resolve all configured AWS profiles on the host system.
func ListProfiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]bool)
	paths := []string{}
	if cfgPath := os.Getenv("AWS_CONFIG_FILE"); cfgPath != "" {
		paths = append(paths, cfgPath)
	} else {
		paths = append(paths, filepath.Join(home, ".aws", "config"))
	}

	if credPath := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); credPath != "" {
		paths = append(paths, credPath)
	} else {
		paths = append(paths, filepath.Join(home, ".aws", "credentials"))
	}

	re := regexp.MustCompile(`^\[(?:profile\s+)?([^\]]+)\]`)

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue // Skip if file doesn't exist
		}

		for _, line := range strings.Split(string(content), "\n") {
			matches := re.FindStringSubmatch(strings.TrimSpace(line))
			if len(matches) > 1 {
				profiles[strings.TrimSpace(matches[1])] = true
			}
		}
	}

	var list []string
	for p := range profiles {
		list = append(list, p)
	}
	sort.Strings(list)

	if len(list) == 0 {
		if os.Getenv("AWS_WEB_IDENTITY_TOKEN_FILE") != "" || os.Getenv("AWS_ACCESS_KEY_ID") != "" {
			return []string{"default"}, nil
		}
		return nil, fmt.Errorf("no profiles found in standard locations")
	}

	return list, nil
}
