package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// EC2Client is the read-only subset of the EC2 API used for discovery.
type EC2Client interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// FallbackRegions is used when region enumeration fails.
var FallbackRegions = []string{"us-east-1", "us-west-2", "eu-west-1", "eu-central-1", "ap-southeast-1"}

// ListedStates are the lifecycle states requested from DescribeInstances.
var ListedStates = []string{
	string(types.InstanceStateNameRunning),
	string(types.InstanceStateNameStopped),
}

// ListRegions returns the regions enabled for the account.
func ListRegions(ctx context.Context, c EC2Client) ([]string, error) {
	out, err := c.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	return regions, nil
}

// ListInstances pages through running and stopped instances, in page order.
// Terminated and shutting-down instances are dropped even if the filter lets them through.
func ListInstances(ctx context.Context, c EC2Client) ([]types.Instance, error) {
	paginator := ec2.NewDescribeInstancesPaginator(c, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("instance-state-name"), Values: ListedStates},
		},
	})

	var instances []types.Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return instances, fmt.Errorf("failed to describe instances: %w", err)
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if IsGone(instance) {
					continue
				}
				instances = append(instances, instance)
			}
		}
	}
	return instances, nil
}

// IsGone reports whether an instance is terminated or on its way there.
func IsGone(instance types.Instance) bool {
	if instance.State == nil {
		return false
	}
	switch instance.State.Name {
	case types.InstanceStateNameTerminated, types.InstanceStateNameShuttingDown:
		return true
	}
	return false
}
