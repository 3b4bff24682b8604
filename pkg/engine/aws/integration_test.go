//go:build integration

package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// TestDiscovery_Integration runs region and instance listing against LocalStack.
// Requires Docker.
func TestDiscovery_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := localstack.Run(ctx, "localstack/localstack:3.0")
	if err != nil {
		t.Fatalf("Failed to start LocalStack: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	if err != nil {
		t.Fatalf("Failed to get endpoint: %v", err)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test", SessionToken: "test"}, nil
		})),
	)
	if err != nil {
		t.Fatalf("Failed to load SDK config: %v", err)
	}

	client := ec2.NewFromConfig(cfg)

	runOut, err := client.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:      aws.String("ami-12345678"),
		InstanceType: types.InstanceTypeT2Micro,
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeInstance,
			Tags:         []types.Tag{{Key: aws.String("Name"), Value: aws.String("it-web")}},
		}},
	})
	if err != nil {
		t.Fatalf("Failed to run instance: %v", err)
	}
	instanceID := aws.ToString(runOut.Instances[0].InstanceId)

	regions, err := ListRegions(ctx, client)
	if err != nil {
		t.Fatalf("ListRegions failed: %v", err)
	}
	if len(regions) == 0 {
		t.Error("Expected LocalStack to report regions")
	}

	instances, err := ListInstances(ctx, client)
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}

	found := false
	for _, inst := range instances {
		if aws.ToString(inst.InstanceId) == instanceID {
			found = true
		}
	}
	if !found {
		t.Errorf("Seeded instance %s not discovered", instanceID)
	}
}
