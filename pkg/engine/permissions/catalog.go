// Package permissions renders the IAM policy snipesync needs in each account.
package permissions

// Catalog maps features to the IAM actions they call.
var Catalog = map[string][]string{
	"discovery": {
		"ec2:DescribeRegions",
		"ec2:DescribeInstances",
	},
	"report": {
		"s3:PutObject",
		"s3:GetObject",
		"s3:ListBucket",
	},
}

// CorePermissions are needed by every run.
func CorePermissions() []string {
	return []string{
		"sts:GetCallerIdentity",
	}
}
