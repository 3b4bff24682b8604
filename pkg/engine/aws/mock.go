package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// MockConnector serves a fixed synthetic fleet, used by --mock runs.
type MockConnector struct{}

// Connect returns a mock session regardless of profile.
func (MockConnector) Connect(ctx context.Context, profile, region string) (Session, error) {
	return &MockSession{Profile: profile}, nil
}

// MockSession pretends to be an account with two regions.
type MockSession struct {
	Profile string
}

func (s *MockSession) VerifyIdentity(ctx context.Context) (string, error) {
	return "123456789012", nil
}

func (s *MockSession) EC2(region string) EC2Client {
	return &mockEC2{region: region, profile: s.Profile}
}

type mockEC2 struct {
	region  string
	profile string
}

func (m *mockEC2) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	return &ec2.DescribeRegionsOutput{Regions: []types.Region{
		{RegionName: aws.String("us-east-1")},
		{RegionName: aws.String("eu-south-1")},
	}}, nil
}

func (m *mockEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	launched := time.Now().Add(-60 * 24 * time.Hour)
	prefix := fmt.Sprintf("i-0mock%s%s", short(m.profile), short(m.region))

	return &ec2.DescribeInstancesOutput{Reservations: []types.Reservation{{
		Instances: []types.Instance{
			{
				InstanceId:       aws.String(prefix + "01"),
				InstanceType:     types.InstanceTypeT3Micro,
				PrivateIpAddress: aws.String("10.0.0.5"),
				PublicIpAddress:  aws.String("203.0.113.10"),
				LaunchTime:       aws.Time(launched),
				State:            &types.InstanceState{Name: types.InstanceStateNameRunning},
				Placement:        &types.Placement{AvailabilityZone: aws.String(m.region + "a")},
				Tags:             []types.Tag{{Key: aws.String("Name"), Value: aws.String("mock-web")}},
			},
			{
				InstanceId:   aws.String(prefix + "02"),
				InstanceType: types.InstanceTypeM5Large,
				State:        &types.InstanceState{Name: types.InstanceStateNameStopped},
			},
		},
	}}}, nil
}

func short(s string) string {
	if len(s) > 4 {
		return s[:4]
	}
	return s
}
