package permissions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/DrSkyle/snipesync/pkg/storage"
)

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Sid      string   `json:"Sid"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// GeneratePolicy returns the read-only discovery policy. When reportTarget is an
// s3:// url a second statement scoped to that bucket and prefix is added.
func GeneratePolicy(reportTarget string) ([]byte, error) {
	actions := append(CorePermissions(), Catalog["discovery"]...)
	sort.Strings(actions)

	policy := PolicyDocument{
		Version: "2012-10-17",
		Statement: []Statement{
			{
				Sid:      "SnipeSyncDiscovery",
				Effect:   "Allow",
				Action:   actions,
				Resource: []string{"*"},
			},
		},
	}

	if strings.HasPrefix(reportTarget, "s3://") {
		bucket, prefix, err := storage.ParseS3URL(reportTarget)
		if err != nil {
			return nil, err
		}
		objects := fmt.Sprintf("arn:aws:s3:::%s/*", bucket)
		if prefix != "" {
			objects = fmt.Sprintf("arn:aws:s3:::%s/%s/*", bucket, prefix)
		}
		s3Actions := append([]string(nil), Catalog["report"]...)
		sort.Strings(s3Actions)
		policy.Statement = append(policy.Statement, Statement{
			Sid:      "SnipeSyncReports",
			Effect:   "Allow",
			Action:   s3Actions,
			Resource: []string{"arn:aws:s3:::" + bucket, objects},
		})
	}

	return json.MarshalIndent(policy, "", "  ")
}
