package aws

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// MockEC2Client implements EC2Client for testing.
type MockEC2Client struct {
	DescribeRegionsFunc   func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeInstancesFunc func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

func (m *MockEC2Client) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	if m.DescribeRegionsFunc != nil {
		return m.DescribeRegionsFunc(ctx, params, optFns...)
	}
	return &ec2.DescribeRegionsOutput{}, nil
}

func (m *MockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if m.DescribeInstancesFunc != nil {
		return m.DescribeInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func instance(id string, state types.InstanceStateName) types.Instance {
	return types.Instance{InstanceId: aws.String(id), State: &types.InstanceState{Name: state}}
}

func TestListInstancesPaginatesAndFilters(t *testing.T) {
	pages := map[string]*ec2.DescribeInstancesOutput{
		"": {
			Reservations: []types.Reservation{{Instances: []types.Instance{
				instance("i-1", types.InstanceStateNameRunning),
				instance("i-term", types.InstanceStateNameTerminated),
			}}},
			NextToken: aws.String("page-2"),
		},
		"page-2": {
			Reservations: []types.Reservation{
				{Instances: []types.Instance{instance("i-2", types.InstanceStateNameStopped)}},
				{Instances: []types.Instance{instance("i-down", types.InstanceStateNameShuttingDown)}},
			},
		},
	}

	var calls int
	mock := &MockEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			calls++
			if len(params.Filters) != 1 || aws.ToString(params.Filters[0].Name) != "instance-state-name" {
				t.Fatalf("unexpected filters: %+v", params.Filters)
			}
			if fmt.Sprint(params.Filters[0].Values) != "[running stopped]" {
				t.Fatalf("unexpected state filter: %v", params.Filters[0].Values)
			}
			return pages[aws.ToString(params.NextToken)], nil
		},
	}

	got, err := ListInstances(context.Background(), mock)
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 page calls, got %d", calls)
	}

	var ids []string
	for _, inst := range got {
		ids = append(ids, aws.ToString(inst.InstanceId))
	}
	if fmt.Sprint(ids) != "[i-1 i-2]" {
		t.Errorf("Expected [i-1 i-2], got %v", ids)
	}
}

func TestListRegions(t *testing.T) {
	mock := &MockEC2Client{
		DescribeRegionsFunc: func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
			return &ec2.DescribeRegionsOutput{Regions: []types.Region{
				{RegionName: aws.String("eu-south-1")},
				{RegionName: nil},
				{RegionName: aws.String("us-east-1")},
			}}, nil
		},
	}

	regions, err := ListRegions(context.Background(), mock)
	if err != nil {
		t.Fatalf("ListRegions failed: %v", err)
	}
	if fmt.Sprint(regions) != "[eu-south-1 us-east-1]" {
		t.Errorf("unexpected regions %v", regions)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"access denied", &smithy.GenericAPIError{Code: "UnauthorizedOperation"}, ReasonAccessDenied},
		{"wrapped auth failure", fmt.Errorf("region x: %w", &smithy.GenericAPIError{Code: "AuthFailure"}), ReasonAccessDenied},
		{"opt in", &smithy.GenericAPIError{Code: "OptInRequired"}, ReasonRegionDisabled},
		{"throttle", &smithy.GenericAPIError{Code: "RequestLimitExceeded"}, ReasonThrottled},
		{"other api", &smithy.GenericAPIError{Code: "InternalError"}, ReasonAPIError},
		{"credentials", fmt.Errorf("%w: no profile", ErrCredentialsUnavailable), ReasonCredentials},
		{"canceled", context.Canceled, ReasonCanceled},
		{"plain", errors.New("boom"), ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v)=%q want %q", tc.err, got, tc.want)
			}
		})
	}
}

// The discovery client interface only exposes Describe* calls, so a session
// can never mutate the account it scans.
func TestEC2ClientIsReadOnly(t *testing.T) {
	var c EC2Client = &MockEC2Client{}
	if _, ok := c.(interface {
		TerminateInstances(context.Context, *ec2.TerminateInstancesInput, ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	}); ok {
		t.Fatal("EC2Client mock unexpectedly exposes TerminateInstances")
	}
}

func TestMockSessionServesInstances(t *testing.T) {
	sess, err := MockConnector{}.Connect(context.Background(), "demo", "us-east-1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := ListInstances(context.Background(), sess.EC2("us-east-1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 mock instances, got %d", len(got))
	}
}
